package entity

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

type Airport struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes AirportAttributes `json:"attributes"`
}

type AirportAttributes struct {
	Name      string `json:"name"`
	City      string `json:"city"`
	Country   string `json:"country"`
	IATA      string `json:"iata"`
	ICAO      string `json:"icao"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Altitude  int    `json:"altitude"`
	Timezone  string `json:"timezone"`
}

// AirportDistance keeps attributes raw so metrics can be addressed by unit name.
type AirportDistance struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes"`
}

const (
	UnitKilometers    = "kilometers"
	UnitMiles         = "miles"
	UnitNauticalMiles = "nautical_miles"
)

// Metric returns the distance expressed in unit.
func (d AirportDistance) Metric(unit string) (float64, bool) {
	res := gjson.GetBytes(d.Attributes, gjson.Escape(unit))
	if !res.Exists() || res.Type != gjson.Number {
		return 0, false
	}
	return res.Float(), true
}

func (d AirportDistance) From() string {
	return gjson.GetBytes(d.Attributes, "from_airport.iata").String()
}

func (d AirportDistance) To() string {
	return gjson.GetBytes(d.Attributes, "to_airport.iata").String()
}

func AirportNames(airports []Airport) map[string]struct{} {
	names := make(map[string]struct{}, len(airports))
	for _, a := range airports {
		names[a.Attributes.Name] = struct{}{}
	}
	return names
}

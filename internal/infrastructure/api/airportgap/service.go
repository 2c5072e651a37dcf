// Package airportgap wraps the AirportGap REST API in Outcome-returning calls.
package airportgap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/input"
	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

var _ input.AirportGap = (*Service)(nil)

const (
	airportsPath = "/api/airports"
	distancePath = "/api/airports/distance"

	maxBody = 4 << 20
)

type Service struct {
	api    output.CRUDPort
	logger output.LoggerPort
}

func New(api output.CRUDPort, logger output.LoggerPort) *Service {
	return &Service{api: api, logger: logger.Named("airportgap")}
}

// Airports returns the first page of airports.
func (s *Service) Airports(ctx context.Context) entity.Outcome[[]entity.Airport] {
	const failure = "Failed to get airports"

	data, err := s.data(s.api.Get(ctx, airportsPath, nil))
	if err != nil {
		return entity.Failf[[]entity.Airport]("%s: %v", failure, err)
	}
	if !data.IsArray() {
		return entity.Failf[[]entity.Airport]("%s: data is not a list: %s", failure, data.Raw)
	}

	var airports []entity.Airport
	if err := json.Unmarshal([]byte(data.Raw), &airports); err != nil {
		return entity.Failf[[]entity.Airport]("%s: %v", failure, err)
	}
	s.logger.Debug("Airports received", "count", len(airports))
	return entity.Succeed(airports)
}

// Distance asks the service for the distance between two airports by IATA code.
func (s *Service) Distance(ctx context.Context, fromIATA, toIATA string) entity.Outcome[entity.AirportDistance] {
	const failure = "Failed to get airports distance"

	body := map[string]string{"from": fromIATA, "to": toIATA}
	data, err := s.data(s.api.Post(ctx, distancePath, body, nil))
	if err != nil {
		return entity.Failf[entity.AirportDistance]("%s: %v", failure, err)
	}
	if !data.IsObject() {
		return entity.Failf[entity.AirportDistance]("%s: data is not an object: %s", failure, data.Raw)
	}

	var distance entity.AirportDistance
	if err := json.Unmarshal([]byte(data.Raw), &distance); err != nil {
		return entity.Failf[entity.AirportDistance]("%s: %v", failure, err)
	}
	return entity.Succeed(distance)
}

// data reads the response and returns its "data" member. A non-2xx response
// becomes an error carrying the body, compacted when it is JSON.
func (s *Service) data(resp *http.Response, err error) (gjson.Result, error) {
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("%d %s", resp.StatusCode, describe(raw))
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("response is not JSON: %s", describe(raw))
	}

	data := gjson.GetBytes(raw, "data")
	if !data.Exists() {
		return gjson.Result{}, fmt.Errorf("response has no data: %s", describe(raw))
	}
	return data, nil
}

func describe(body []byte) string {
	if gjson.ValidBytes(body) {
		return gjson.GetBytes(body, "@ugly").Raw
	}
	return strings.TrimSpace(string(body))
}

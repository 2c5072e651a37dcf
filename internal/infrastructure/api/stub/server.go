// Package stub serves an offline AirportGap-compatible API for tests and
// local runs.
package stub

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

// PageSize matches the upstream API: list responses hold 30 airports.
const PageSize = 30

const (
	earthRadiusKm = 6371.0
	kmPerMile     = 1.609344
	kmPerNautical = 1.852
)

//go:embed airports.json
var airportsJSON []byte

var (
	loadOnce sync.Once
	fixture  []entity.Airport
	loadErr  error
)

// Airports returns the embedded fixture in list order.
func Airports() ([]entity.Airport, error) {
	loadOnce.Do(func() {
		loadErr = json.Unmarshal(airportsJSON, &fixture)
	})
	return fixture, loadErr
}

type Options struct {
	// Token, when set, must match the Authorization header of every API call.
	Token string
	// RequestLog enables httplog request logging.
	RequestLog bool
}

type server struct {
	airports []entity.Airport
	byIATA   map[string]entity.Airport
	token    string
}

func NewHandler(opts Options) (http.Handler, error) {
	airports, err := Airports()
	if err != nil {
		return nil, fmt.Errorf("failed to load airports fixture: %w", err)
	}

	s := &server{
		airports: airports,
		byIATA:   make(map[string]entity.Airport, len(airports)),
		token:    opts.Token,
	}
	for _, a := range airports {
		s.byIATA[a.Attributes.IATA] = a
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if opts.RequestLog {
		logger := httplog.NewLogger("airportgap-stub", httplog.Options{JSON: true, Concise: true})
		r.Use(httplog.RequestLogger(logger))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authorize)
		r.Get("/airports", s.listAirports)
		r.Post("/airports/distance", s.distance)
		r.Get("/airports/{iata}", s.getAirport)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "The page you requested could not be found")
	})
	return r, nil
}

func (s *server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != s.token {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "You are not authorized to perform the requested action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) listAirports(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Bad Request", "page must be a positive number")
			return
		}
		page = n
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(s.airports) {
		start = len(s.airports)
	}
	if end > len(s.airports) {
		end = len(s.airports)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.airports[start:end]})
}

func (s *server) getAirport(w http.ResponseWriter, r *http.Request) {
	airport, ok := s.byIATA[strings.ToUpper(chi.URLParam(r, "iata"))]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "The page you requested could not be found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": airport})
}

func (s *server) distance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request", "Request body is not valid JSON")
			return
		}
	} else {
		req.From, req.To = r.FormValue("from"), r.FormValue("to")
	}

	from, okFrom := s.byIATA[strings.ToUpper(req.From)]
	to, okTo := s.byIATA[strings.ToUpper(req.To)]
	if !okFrom || !okTo {
		writeError(w, http.StatusUnprocessableEntity, "Unable to process request", "Please enter valid 'from' and 'to' airports.")
		return
	}

	km, err := Haversine(from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"id":   from.Attributes.IATA + "-" + to.Attributes.IATA,
			"type": "airport_distance",
			"attributes": map[string]any{
				"from_airport":   from.Attributes,
				"to_airport":     to.Attributes,
				"kilometers":     round2(km),
				"miles":          round2(km / kmPerMile),
				"nautical_miles": round2(km / kmPerNautical),
			},
		},
	})
}

// Haversine returns the great-circle distance between two airports in km.
func Haversine(a, b entity.Airport) (float64, error) {
	lat1, lon1, err := coords(a)
	if err != nil {
		return 0, err
	}
	lat2, lon2, err := coords(b)
	if err != nil {
		return 0, err
	}

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h)), nil
}

func coords(a entity.Airport) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(a.Attributes.Latitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad latitude of %s: %w", a.Attributes.IATA, err)
	}
	lon, err = strconv.ParseFloat(a.Attributes.Longitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad longitude of %s: %w", a.Attributes.IATA, err)
	}
	return lat * math.Pi / 180, lon * math.Pi / 180, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func writeError(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, status, map[string]any{
		"errors": []map[string]string{{
			"status": strconv.Itoa(status),
			"title":  title,
			"detail": detail,
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

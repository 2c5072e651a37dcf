package airportgap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/api/crud"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/api/stub"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/logger"
)

func newService(t *testing.T, h http.Handler, token string) *Service {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client, err := crud.New(crud.ServiceConfig{ServiceURL: server.URL, Token: token, Timeout: 5 * time.Second}, logger.NewNop())
	require.NoError(t, err)
	return New(client, logger.NewNop())
}

func newStubService(t *testing.T) *Service {
	t.Helper()
	h, err := stub.NewHandler(stub.Options{})
	require.NoError(t, err)
	return newService(t, h, "")
}

func TestAirports(t *testing.T) {
	svc := newStubService(t)

	res := svc.Airports(context.Background())

	require.True(t, res.OK(), res.ErrorMsg())
	airports := res.Data()
	assert.Len(t, airports, 30)

	names := entity.AirportNames(airports)
	for _, name := range []string{"Goroka Airport", "Madang Airport", "Akureyri Airport"} {
		assert.Contains(t, names, name)
	}
	assert.Equal(t, "AYGA", airports[0].Attributes.ICAO)
	assert.Equal(t, 5282, airports[0].Attributes.Altitude)
}

func TestDistance(t *testing.T) {
	svc := newStubService(t)

	res := svc.Distance(context.Background(), "KIX", "NRT")

	require.True(t, res.OK(), res.ErrorMsg())
	d := res.Data()
	assert.Equal(t, "KIX", d.From())
	assert.Equal(t, "NRT", d.To())
	km, ok := d.Metric(entity.UnitKilometers)
	require.True(t, ok)
	assert.Greater(t, km, 400.0)
	assert.Less(t, km, 1000.0)
}

func TestDistance_UnknownAirport(t *testing.T) {
	svc := newStubService(t)

	res := svc.Distance(context.Background(), "KIX", "ZZZ")

	assert.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.ErrorMsg(), "Failed to get airports distance: 422"), res.ErrorMsg())
	assert.Contains(t, res.ErrorMsg(), `"detail":"Please enter valid 'from' and 'to' airports."`)
}

func TestAirports_Unauthorized(t *testing.T) {
	h, err := stub.NewHandler(stub.Options{Token: "Bearer token=right"})
	require.NoError(t, err)
	svc := newService(t, h, "Bearer token=wrong")

	res := svc.Airports(context.Background())

	assert.False(t, res.OK())
	assert.Contains(t, res.ErrorMsg(), "Failed to get airports: 401")
}

func TestAirports_NonJSONError(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "  upstream down\n")
	}), "")

	res := svc.Airports(context.Background())

	assert.Equal(t, "Failed to get airports: 502 upstream down", res.ErrorMsg())
}

func TestAirports_MalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", "<html>", "response is not JSON"},
		{"no data", `{"links":{}}`, "response has no data"},
		{"data not a list", `{"data":{"id":"GKA"}}`, "data is not a list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}), "")

			res := svc.Airports(context.Background())

			assert.False(t, res.OK())
			assert.Contains(t, res.ErrorMsg(), tt.want)
		})
	}
}

type failingCRUD struct{ err error }

func (f failingCRUD) Get(context.Context, string, url.Values) (*http.Response, error) {
	return nil, f.err
}

func (f failingCRUD) Post(context.Context, string, any, url.Values) (*http.Response, error) {
	return nil, f.err
}

func (f failingCRUD) Put(context.Context, string, any, url.Values) (*http.Response, error) {
	return nil, f.err
}

func (f failingCRUD) Patch(context.Context, string, any, url.Values) (*http.Response, error) {
	return nil, f.err
}

func (f failingCRUD) Delete(context.Context, string, url.Values) (*http.Response, error) {
	return nil, f.err
}

func TestTransportFailureBecomesOutcome(t *testing.T) {
	svc := New(failingCRUD{err: errors.New("dial tcp: connection refused")}, logger.NewNop())

	res := svc.Distance(context.Background(), "KIX", "NRT")

	assert.Equal(t, "Failed to get airports distance: dial tcp: connection refused", res.ErrorMsg())
}

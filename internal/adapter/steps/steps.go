// Package steps binds the Gherkin step texts to page objects and API
// services. Each scenario gets its own state and session.
package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/input"
	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/artifacts"
	"github.com/svarogrud/ctrlup-aht/internal/usecase/pages"
)

// Session is the per-scenario resource owner, see di.Session.
type Session interface {
	Navigator(ctx context.Context) (input.Navigator, error)
	Pages(ctx context.Context) (*pages.Pages, error)
	AirportGap() (input.AirportGap, error)
	// Driver is nil until a step started the browser.
	Driver() output.DriverPort
	Close()
}

type Capturer interface {
	Capture(ctx context.Context, driver output.DriverPort, scenario string) (artifacts.Saved, error)
}

type Suite struct {
	newSession func() Session
	logger     output.LoggerPort
	artifacts  Capturer
}

// NewSuite builds the step bindings. capturer may be nil to skip failure
// artifacts.
func NewSuite(newSession func() Session, logger output.LoggerPort, capturer Capturer) *Suite {
	return &Suite{
		newSession: newSession,
		logger:     logger.Named("steps"),
		artifacts:  capturer,
	}
}

// scenario is the state shared by the steps of one scenario.
type scenario struct {
	session  Session
	logger   output.LoggerPort
	airports []entity.Airport
	distance *entity.AirportDistance
}

// InitializeScenario is a godog.ScenarioInitializer.
func (s *Suite) InitializeScenario(sc *godog.ScenarioContext) {
	st := &scenario{logger: s.logger}

	sc.Before(func(ctx context.Context, gs *godog.Scenario) (context.Context, error) {
		st.logger = s.logger.WithField("scenario", gs.Name)
		st.session = s.newSession()
		return ctx, nil
	})

	sc.StepContext().Before(func(ctx context.Context, step *godog.Step) (context.Context, error) {
		st.logger.Info(`Starting step: "` + step.Text + `"`)
		return ctx, nil
	})

	sc.After(func(ctx context.Context, gs *godog.Scenario, err error) (context.Context, error) {
		if st.session == nil {
			return ctx, nil
		}
		if err != nil && s.artifacts != nil {
			if driver := st.session.Driver(); driver != nil {
				// best effort; Capture logs what it could not save
				_, _ = s.artifacts.Capture(ctx, driver, gs.Name)
			}
		}
		st.session.Close()
		return ctx, nil
	})

	sc.Step(`^I navigate to "([^"]*)"$`, st.navigateTo)
	sc.Step(`^log in using the following credentials:$`, st.logIn)
	sc.Step(`^inventory page displays exactly (\d+) items$`, st.inventoryDisplays)
	sc.Step(`^add the (\d+)(?:st|nd|rd|th) inventory item to the shopping cart$`, st.addToCart)
	sc.Step(`^the cart badge displays the number (\d+)$`, st.cartBadgeDisplays)

	sc.Step(`^I get airports list from airportgap\.com service$`, st.getAirports)
	sc.Step(`^the response contains exactly (\d+) airports$`, st.airportsCount)
	sc.Step(`^the response includes the following airports:$`, st.airportsInclude)
	sc.Step(`^I check the distance from "([^"]*)" to "([^"]*)" using airportgap\.com service$`, st.checkDistance)
	sc.Step(`^the calculated distance between these airports is (greater than|less than|equal to|not equal to) (-?\d+(?:\.\d+)?) (kilometers|miles|nautical_miles)$`, st.distanceIs)
}

func (st *scenario) navigateTo(ctx context.Context, url string) error {
	nav, err := st.session.Navigator(ctx)
	if err != nil {
		return err
	}
	st.logger.Info("Navigating", "url", url)
	if !nav.Open(ctx, url) {
		return fmt.Errorf("Failed to navigate to %s, current URL is %s", url, nav.CurrentURL(ctx))
	}
	return nil
}

func (st *scenario) logIn(ctx context.Context, table *godog.Table) error {
	p, err := st.session.Pages(ctx)
	if err != nil {
		return err
	}
	if res := p.Login.IsPageOpened(ctx, 0); !res.OK() {
		return fmt.Errorf("Login page not opened: %s", res.ErrorMsg())
	}

	creds, err := credentials(table)
	if err != nil {
		return err
	}
	if res := p.Login.Login(ctx, creds); !res.OK() {
		return fmt.Errorf("Failed to log in with credentials due to: %s", res.ErrorMsg())
	}
	return nil
}

func (st *scenario) inventory(ctx context.Context) (input.InventoryPage, error) {
	p, err := st.session.Pages(ctx)
	if err != nil {
		return nil, err
	}
	if res := p.Inventory.IsPageOpened(ctx, 0); !res.OK() {
		return nil, fmt.Errorf("Inventory page not opened: %s", res.ErrorMsg())
	}
	return p.Inventory, nil
}

func (st *scenario) inventoryDisplays(ctx context.Context, want int) error {
	inv, err := st.inventory(ctx)
	if err != nil {
		return err
	}
	res := inv.Items(ctx)
	if !res.OK() {
		return fmt.Errorf("Failed to get inventory items: %s", res.ErrorMsg())
	}
	if got := len(res.Data()); got != want {
		return fmt.Errorf("Expected %d items, but found %d items", want, got)
	}
	return nil
}

// addToCart takes a 1-based position as written in the scenario.
func (st *scenario) addToCart(ctx context.Context, position int) error {
	inv, err := st.inventory(ctx)
	if err != nil {
		return err
	}
	if res := inv.AddToCart(ctx, position-1); !res.OK() {
		return fmt.Errorf("Failed to add inventory item %d to cart: %s", position, res.ErrorMsg())
	}
	return nil
}

func (st *scenario) cartBadgeDisplays(ctx context.Context, want int) error {
	inv, err := st.inventory(ctx)
	if err != nil {
		return err
	}
	res := inv.CartBadgeCount(ctx)
	if !res.OK() {
		return fmt.Errorf("Failed to get cart badge count: %s", res.ErrorMsg())
	}
	// an empty cart shows no badge at all
	got, _ := res.Value()
	if got != want {
		return fmt.Errorf("Expected cart badge count %d, but got %d", want, got)
	}
	return nil
}

func (st *scenario) getAirports(ctx context.Context) error {
	api, err := st.session.AirportGap()
	if err != nil {
		return err
	}
	res := api.Airports(ctx)
	if !res.OK() {
		return errors.New(res.ErrorMsg())
	}
	st.airports = res.Data()
	return nil
}

func (st *scenario) airportsCount(want int) error {
	if st.airports == nil {
		return errors.New("no airports list was received in this scenario")
	}
	if got := len(st.airports); got != want {
		return fmt.Errorf("Expected %d airports, but found %d", want, got)
	}
	return nil
}

func (st *scenario) airportsInclude(table *godog.Table) error {
	if st.airports == nil {
		return errors.New("no airports list was received in this scenario")
	}
	if table == nil || len(table.Rows) < 2 {
		return errors.New("airports table needs a header and at least one row")
	}

	actual := entity.AirportNames(st.airports)
	var missing []string
	for _, row := range table.Rows[1:] {
		if len(row.Cells) == 0 {
			continue
		}
		name := strings.TrimSpace(row.Cells[0].Value)
		if _, ok := actual[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("Mismatch in airports. Missing: %s, Actual: %s",
			strings.Join(missing, ", "), strings.Join(sortedNames(actual), ", "))
	}
	return nil
}

func (st *scenario) checkDistance(ctx context.Context, from, to string) error {
	api, err := st.session.AirportGap()
	if err != nil {
		return err
	}
	res := api.Distance(ctx, from, to)
	if !res.OK() {
		return errors.New(res.ErrorMsg())
	}
	d := res.Data()
	st.distance = &d
	return nil
}

func (st *scenario) distanceIs(op string, expected float64, unit string) error {
	if st.distance == nil {
		return errors.New("no distance was received in this scenario")
	}
	actual, ok := st.distance.Metric(unit)
	if !ok {
		return fmt.Errorf("distance has no numeric %s attribute", unit)
	}
	holds, err := Compare(op, actual, expected)
	if err != nil {
		return err
	}
	if !holds {
		return fmt.Errorf("Expected distance to be %s %v %s, but got %v", op, expected, unit, actual)
	}
	return nil
}

// credentials reads the login table. Rows after the header are field/value
// pairs; a header naming Username or Password columns is read as one record
// instead.
func credentials(table *godog.Table) (entity.Credentials, error) {
	if table == nil || len(table.Rows) < 2 {
		return entity.Credentials{}, errors.New("credentials table needs a header and at least one row")
	}

	fields := make(map[string]string)
	if isCredentialsHeader(table.Rows[0]) {
		records, err := tableRecords(table)
		if err != nil {
			return entity.Credentials{}, err
		}
		fields = records[0]
	} else {
		for i, row := range table.Rows[1:] {
			if len(row.Cells) < 2 {
				return entity.Credentials{}, fmt.Errorf("credentials row %d needs a field and a value", i+1)
			}
			fields[strings.TrimSpace(row.Cells[0].Value)] = row.Cells[1].Value
		}
	}

	username, hasUser := fields["Username"]
	password, hasPass := fields["Password"]
	if !hasUser && !hasPass {
		return entity.Credentials{}, errors.New("credentials table has neither Username nor Password")
	}
	return entity.Credentials{Username: username, Password: password, ClickLogin: true}, nil
}

func isCredentialsHeader(row *messages.PickleTableRow) bool {
	for _, cell := range row.Cells {
		switch strings.TrimSpace(cell.Value) {
		case "Username", "Password":
			return true
		}
	}
	return false
}

// tableRecords maps each data row to its header cells.
func tableRecords(table *godog.Table) ([]map[string]string, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, errors.New("step needs a table with a header row")
	}
	header := table.Rows[0].Cells
	records := make([]map[string]string, 0, len(table.Rows)-1)
	for i, row := range table.Rows[1:] {
		if len(row.Cells) != len(header) {
			return nil, fmt.Errorf("table row %d has %d cells, header has %d", i+1, len(row.Cells), len(header))
		}
		rec := make(map[string]string, len(header))
		for j, cell := range row.Cells {
			rec[strings.TrimSpace(header[j].Value)] = cell.Value
		}
		records = append(records, rec)
	}
	return records, nil
}

func sortedNames(names map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Package pages holds the page objects of the shop under test. Each page
// turns element interactions into one entity.Outcome per business operation.
package pages

import (
	"context"
	"time"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/input"
	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

// DefaultOpenTimeout bounds IsPageOpened when the caller passes 0.
const DefaultOpenTimeout = 5 * time.Second

// Interactor is the part of service.Browser the page objects rely on.
type Interactor interface {
	IsPresent(ctx context.Context, loc entity.Locator, timeout time.Duration) bool
	FindAll(ctx context.Context, loc entity.Locator, timeout time.Duration) []output.ElementPort
	EnterText(ctx context.Context, loc entity.Locator, text string, timeout time.Duration) bool
	ReadText(ctx context.Context, loc entity.Locator, timeout time.Duration) string
	Click(ctx context.Context, loc entity.Locator, timeout time.Duration) bool
	TextWithin(ctx context.Context, parent output.ElementPort, loc entity.Locator) (string, error)
	ClickWithin(ctx context.Context, parent output.ElementPort, loc entity.Locator, timeout time.Duration) error
}

// Pages is built once per browser session and never changes afterwards.
type Pages struct {
	Login     input.LoginPage
	Inventory input.InventoryPage
}

func New(browser Interactor) *Pages {
	return &Pages{
		Login:     NewLoginPage(browser),
		Inventory: NewInventoryPage(browser),
	}
}

// opened is the shared open-check: a presence test on the page marker.
func opened(ctx context.Context, browser Interactor, marker entity.Locator, timeout time.Duration, name string) entity.Outcome[entity.None] {
	if timeout <= 0 {
		timeout = DefaultOpenTimeout
	}
	if !browser.IsPresent(ctx, marker, timeout) {
		return entity.Failf[entity.None]("%s page is not detected by the locator: %s", name, marker)
	}
	return entity.Done()
}

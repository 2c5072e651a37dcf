package output

import (
	"context"
	"errors"

	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

// Driver adapters wrap their native errors with these so the interaction
// layer can classify failures without knowing the driver.
var (
	ErrNoSuchElement   = errors.New("no such element")
	ErrStaleElement    = errors.New("stale element reference")
	ErrNotInteractable = errors.New("element not interactable")
)

// SearchContext is anything elements can be looked up in: the whole document
// or a single element. FindElements never waits and returns an empty slice
// when nothing matches.
type SearchContext interface {
	FindElements(ctx context.Context, loc entity.Locator) ([]ElementPort, error)
}

type ElementPort interface {
	SearchContext

	Text(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	// Interactable returns ErrNotInteractable when the element is covered or
	// cannot receive pointer events.
	Interactable(ctx context.Context) error

	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Click(ctx context.Context) error
}

// DriverPort is a live browser session owned by one scenario.
type DriverPort interface {
	SearchContext

	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	PageSource(ctx context.Context) (string, error)

	Close() error
}

package input

import (
	"context"
	"time"

	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

type LoginPage interface {
	IsPageOpened(ctx context.Context, timeout time.Duration) entity.Outcome[entity.None]
	Login(ctx context.Context, creds entity.Credentials) entity.Outcome[entity.None]
}

type InventoryPage interface {
	IsPageOpened(ctx context.Context, timeout time.Duration) entity.Outcome[entity.None]
	Items(ctx context.Context) entity.Outcome[[]entity.InventoryItem]
	AddToCart(ctx context.Context, index int) entity.Outcome[entity.None]
	CartBadgeCount(ctx context.Context) entity.Outcome[int]
}

// Navigator is the page-independent part of the browser used by step bindings.
type Navigator interface {
	Open(ctx context.Context, url string) bool
	CurrentURL(ctx context.Context) string
}

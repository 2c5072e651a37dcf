package input

import (
	"context"

	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

type AirportGap interface {
	Airports(ctx context.Context) entity.Outcome[[]entity.Airport]
	Distance(ctx context.Context, fromIATA, toIATA string) entity.Outcome[entity.AirportDistance]
}

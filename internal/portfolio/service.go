package portfolio

import (
	"context"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/shopspring/decimal"
)

// Service is the position book: per-(account, instrument) share count and
// weighted average cost. Only the order engine writes to it, inside the
// engine's coordinator scope.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ApplyFill folds an executed buy into the account's position, creating the
// position lazily on the first fill.
func (s *Service) ApplyFill(ctx context.Context, accountID, stockID string, executedPrice decimal.Decimal, fillQuantity int, at time.Time) error {
	if fillQuantity <= 0 || executedPrice.LessThanOrEqual(decimal.Zero) {
		return types.NewValidationError("executed price and fill quantity must be positive")
	}

	current, err := s.repo.Find(ctx, accountID, stockID)
	if err != nil {
		return err
	}
	if current == nil {
		empty := Empty(accountID, stockID)
		current = &empty
	}

	updated := current.WithFill(executedPrice, fillQuantity, at)
	return s.repo.Upsert(ctx, &updated)
}

// ListPositions returns all of the account's positions.
func (s *Service) ListPositions(ctx context.Context, accountID string) ([]Position, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

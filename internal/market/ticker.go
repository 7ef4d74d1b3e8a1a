package market

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TickHandler receives every price update exactly once per instrument per
// sweep. The order engine implements it to resolve pending limit orders.
type TickHandler interface {
	OnPriceTick(ctx context.Context, stockID, symbol string, price decimal.Decimal, at time.Time) error
}

// Ticker advances every instrument's price on a fixed interval and forwards
// each observation to the handler.
type Ticker struct {
	service  *Service
	handler  TickHandler
	interval time.Duration
}

func NewTicker(service *Service, handler TickHandler, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Ticker{service: service, handler: handler, interval: interval}
}

// Start runs the tick loop until ctx is cancelled.
func (t *Ticker) Start(ctx context.Context) {
	logger := log.With().Str("component", "market_ticker").Logger()
	logger.Info().Dur("interval", t.interval).Msg("starting market ticker")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down market ticker")
			return
		case <-ticker.C:
			if err := t.sweep(ctx); err != nil {
				logger.Error().Err(err).Msg("tick sweep failed")
			}
		}
	}
}

// sweep advances each stock once. A failure on one instrument never stops the
// others.
func (t *Ticker) sweep(ctx context.Context) error {
	logger := log.With().Str("component", "market_ticker").Logger()

	stocks, err := t.service.ListStocks(ctx)
	if err != nil {
		return err
	}

	for _, stock := range stocks {
		snapshot := t.service.TickFor(stock.Symbol, stock.LastPrice)
		if err := t.service.UpdatePrice(ctx, stock.StockID, snapshot.Price, snapshot.Timestamp); err != nil {
			logger.Error().Err(err).Str("symbol", stock.Symbol).Msg("failed to persist tick")
			continue
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler.OnPriceTick(ctx, stock.StockID, stock.Symbol, snapshot.Price, snapshot.Timestamp); err != nil {
			logger.Error().Err(err).Str("symbol", stock.Symbol).Msg("tick handler failed")
		}
	}
	return nil
}

package market

import (
	"context"
	"strings"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// followedQuotesTTL bounds how often a watchlist read refreshes prices.
const followedQuotesTTL = time.Second

// Service exposes the stock catalogue, the per-account watchlist and the
// price feed to the rest of the backend.
type Service struct {
	repo     Repository
	feed     Feed
	followed *quoteCache
}

func NewService(repo Repository, feed Feed) *Service {
	return NewServiceWithCacheTTL(repo, feed, followedQuotesTTL)
}

// NewServiceWithCacheTTL overrides the watchlist quote cache TTL.
func NewServiceWithCacheTTL(repo Repository, feed Feed, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = followedQuotesTTL
	}
	return &Service{
		repo:     repo,
		feed:     feed,
		followed: newQuoteCache(ttl),
	}
}

// FindStock returns the instrument for symbol, or (nil, nil) when unknown.
func (s *Service) FindStock(ctx context.Context, symbol string) (*Stock, error) {
	return s.repo.FindBySymbol(ctx, symbol)
}

// ListStocks returns the whole catalogue ordered by symbol.
func (s *Service) ListStocks(ctx context.Context) ([]Stock, error) {
	return s.repo.List(ctx)
}

// TickFor produces the next observation for symbol seeded from reference.
func (s *Service) TickFor(symbol string, reference decimal.Decimal) Snapshot {
	return s.feed.TickFor(symbol, reference)
}

// UpdatePrice persists the latest observed price for an instrument.
func (s *Service) UpdatePrice(ctx context.Context, stockID string, price decimal.Decimal, at time.Time) error {
	return s.repo.UpdatePrice(ctx, stockID, price, at)
}

// Quote advances and persists the price for symbol and returns the snapshot.
func (s *Service) Quote(ctx context.Context, symbol string) (*Snapshot, error) {
	stock, err := s.requireStock(ctx, symbol)
	if err != nil {
		return nil, err
	}
	snapshot := s.feed.TickFor(stock.Symbol, stock.LastPrice)
	if err := s.repo.UpdatePrice(ctx, stock.StockID, snapshot.Price, snapshot.Timestamp); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Follow adds the instrument to the account's watchlist. Following it again
// is a no-op.
func (s *Service) Follow(ctx context.Context, accountID, symbol string) (*Stock, error) {
	stock, err := s.requireStock(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Follow(ctx, accountID, stock.StockID); err != nil {
		return nil, err
	}
	s.followed.invalidate(accountID)

	log.Info().
		Str("account_id", accountID).
		Str("symbol", stock.Symbol).
		Msg("stock followed")

	return stock, nil
}

// Unfollow removes the instrument from the account's watchlist. Removing one
// that was never followed is a no-op.
func (s *Service) Unfollow(ctx context.Context, accountID, symbol string) error {
	stock, err := s.requireStock(ctx, symbol)
	if err != nil {
		return err
	}
	if err := s.repo.Unfollow(ctx, accountID, stock.StockID); err != nil {
		return err
	}
	s.followed.invalidate(accountID)

	log.Info().
		Str("account_id", accountID).
		Str("symbol", stock.Symbol).
		Msg("stock unfollowed")

	return nil
}

// ListFollowed returns a refreshed quote for every stock on the account's
// watchlist, ordered by symbol. Results are cached for a short TTL so a
// polling client does not advance the feed on every request.
func (s *Service) ListFollowed(ctx context.Context, accountID string) ([]Quote, error) {
	if quotes, ok := s.followed.get(accountID); ok {
		return quotes, nil
	}

	stocks, err := s.repo.ListFollowed(ctx, accountID)
	if err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(stocks))
	for i := range stocks {
		stock := stocks[i]
		snapshot := s.feed.TickFor(stock.Symbol, stock.LastPrice)
		if err := s.repo.UpdatePrice(ctx, stock.StockID, snapshot.Price, snapshot.Timestamp); err != nil {
			return nil, err
		}
		quotes = append(quotes, Quote{
			StockID:     stock.StockID,
			Symbol:      stock.Symbol,
			Name:        stock.Name,
			Description: stock.Description,
			Price:       snapshot.Price,
			UpdatedAt:   snapshot.Timestamp,
		})
	}

	s.followed.put(accountID, quotes)
	return quotes, nil
}

func (s *Service) requireStock(ctx context.Context, symbol string) (*Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	stock, err := s.repo.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, types.NewNotFoundError("unknown symbol: %s", symbol)
	}
	return stock, nil
}

// SeedCatalogue inserts the default instruments when the catalogue is empty.
func (s *Service) SeedCatalogue(ctx context.Context) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := []Stock{
		{Symbol: "AAPL", Name: "Apple Inc.", Description: "Consumer electronics and services", LastPrice: decimal.NewFromFloat(185.32)},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Description: "Search and cloud computing", LastPrice: decimal.NewFromFloat(141.80)},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Description: "Software and cloud services", LastPrice: decimal.NewFromFloat(409.06)},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", Description: "E-commerce and cloud infrastructure", LastPrice: decimal.NewFromFloat(178.15)},
		{Symbol: "TSLA", Name: "Tesla Inc.", Description: "Electric vehicles and energy storage", LastPrice: decimal.NewFromFloat(251.44)},
	}
	now := time.Now().UTC()
	for i := range defaults {
		defaults[i].StockID = uuid.New().String()
		defaults[i].UpdatedAt = now
		if err := s.repo.Create(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	return nil
}

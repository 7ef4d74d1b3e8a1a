package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SalahGhedda/BrokerX/internal/auth"
	"github.com/SalahGhedda/BrokerX/internal/locks"
	"github.com/SalahGhedda/BrokerX/internal/market"
	"github.com/SalahGhedda/BrokerX/internal/metrics"
	"github.com/SalahGhedda/BrokerX/internal/txn"
	"github.com/SalahGhedda/BrokerX/internal/types"
	"github.com/SalahGhedda/BrokerX/internal/wallet"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const maxOrderQuantity = 1000

// AccountDirectory resolves the account that wants to trade.
type AccountDirectory interface {
	FindAccount(ctx context.Context, accountID string) (*auth.Account, error)
}

// MarketData resolves instruments and produces reference prices.
type MarketData interface {
	FindStock(ctx context.Context, symbol string) (*market.Stock, error)
	TickFor(symbol string, reference decimal.Decimal) market.Snapshot
	UpdatePrice(ctx context.Context, stockID string, price decimal.Decimal, at time.Time) error
}

// Ledger is the wallet surface the engine debits, refunds and checks.
type Ledger interface {
	Debit(ctx context.Context, ownerID string, amount decimal.Decimal) (*wallet.Wallet, error)
	Refund(ctx context.Context, ownerID string, amount decimal.Decimal) error
	EnsureBalance(ctx context.Context, ownerID string, required decimal.Decimal) error
}

// PositionBook records completed fills.
type PositionBook interface {
	ApplyFill(ctx context.Context, accountID, stockID string, executedPrice decimal.Decimal, fillQuantity int, at time.Time) error
}

// Notifier delivers best-effort account notifications. Errors are logged and
// never propagated to trading callers.
type Notifier interface {
	Publish(accountID, category, message, referenceID, payload string) error
}

// PlaceOrderCommand is the raw trade request. Numeric fields arrive as
// strings and are validated by the engine, not the transport.
type PlaceOrderCommand struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Quantity      string `json:"quantity"`
	LimitPrice    string `json:"limit_price"`
	ClientOrderID string `json:"client_order_id"`
}

// Deps wires the engine's collaborators.
type Deps struct {
	Repo      Repository
	Accounts  AccountDirectory
	Market    MarketData
	Ledger    Ledger
	Positions PositionBook
	Notifier  Notifier
	Metrics   *metrics.Registry
	Tx        txn.Manager
}

// Service is the order execution engine. It owns the whole order lifecycle:
// validation, funds reservation, immediate or tick-driven execution,
// reconciliation and cancellation, each inside a coordinator scope. Attempts
// on the same order are serialized through a per-order mutex so at most one
// execution wins.
type Service struct {
	repo       Repository
	accounts   AccountDirectory
	market     MarketData
	ledger     Ledger
	positions  PositionBook
	notifier   Notifier
	metrics    *metrics.Registry
	tx         txn.Manager
	orderLocks *locks.KeyedMutex
}

func NewService(deps Deps) *Service {
	return &Service{
		repo:       deps.Repo,
		accounts:   deps.Accounts,
		market:     deps.Market,
		ledger:     deps.Ledger,
		positions:  deps.Positions,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		tx:         deps.Tx,
		orderLocks: locks.NewKeyedMutex(),
	}
}

// PlaceOrder validates and executes a trade request. A MARKET order fills
// immediately at the current tick price. A LIMIT order fills immediately when
// the tick price has already reached the limit (the limit acts as a trigger
// floor); otherwise the full limit notional is reserved and the order waits
// for a tick. Replaying a client order id returns the original order
// untouched.
func (s *Service) PlaceOrder(ctx context.Context, accountID string, cmd PlaceOrderCommand) (*Order, error) {
	symbol, err := validateSymbol(cmd.Symbol)
	if err != nil {
		return nil, err
	}
	if err := validateSide(cmd.Side); err != nil {
		return nil, err
	}
	orderType, err := parseType(cmd.Type)
	if err != nil {
		return nil, err
	}
	quantity, err := parseQuantity(cmd.Quantity)
	if err != nil {
		return nil, err
	}
	var limitPrice decimal.Decimal
	if orderType == TypeLimit {
		limitPrice, err = parseLimitPrice(cmd.LimitPrice)
		if err != nil {
			return nil, err
		}
	}

	var clientOrderID *string
	if cmd.ClientOrderID != "" {
		clientOrderID = &cmd.ClientOrderID
	}

	var result *Order
	var tickStockID string
	var tickSnapshot market.Snapshot
	tickTaken := false

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		account, err := s.accounts.FindAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return types.NewNotFoundError("account not found")
		}
		if !account.IsActive() {
			return types.NewStateError("account is not active")
		}

		if clientOrderID != nil {
			existing, err := s.repo.FindByClientOrderID(ctx, accountID, *clientOrderID)
			if err != nil {
				return err
			}
			if existing != nil {
				result = existing
				return nil
			}
		}

		stock, err := s.market.FindStock(ctx, symbol)
		if err != nil {
			return err
		}
		if stock == nil {
			return types.NewValidationError("unknown symbol: %s", symbol)
		}

		snapshot := s.market.TickFor(stock.Symbol, stock.LastPrice)
		if err := s.market.UpdatePrice(ctx, stock.StockID, snapshot.Price, snapshot.Timestamp); err != nil {
			return err
		}
		tickStockID, tickSnapshot, tickTaken = stock.StockID, snapshot, true

		if err := s.preTradeChecks(ctx, accountID, orderType, quantity, limitPrice, snapshot.Price); err != nil {
			return err
		}

		if orderType == TypeMarket {
			result, err = s.placeImmediate(ctx, accountID, stock, orderType, quantity, clientOrderID, decimal.NullDecimal{}, snapshot)
			return err
		}

		reserved := limitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
		if snapshot.Price.Round(2).GreaterThanOrEqual(limitPrice) {
			result, err = s.placeImmediate(ctx, accountID, stock, orderType, quantity, clientOrderID, decimal.NewNullDecimal(limitPrice), snapshot)
			return err
		}

		result, err = s.placePendingLimit(ctx, accountID, stock, quantity, clientOrderID, limitPrice, reserved)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The fresh observation may make other pending orders on the same
	// instrument marketable.
	if tickTaken {
		if err := s.OnPriceTick(ctx, tickStockID, symbol, tickSnapshot.Price, tickSnapshot.Timestamp); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("post-placement tick sweep failed")
		}
	}

	return result, nil
}

// OnPriceTick resolves every pending order on the instrument whose limit has
// been reached by the new price. Each order reconciles inside its own
// coordinator scope; one order's failure never aborts the others.
func (s *Service) OnPriceTick(ctx context.Context, stockID, symbol string, price decimal.Decimal, at time.Time) error {
	pending, err := s.repo.FindPendingByStock(ctx, stockID)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordTick()
	}
	if len(pending) == 0 {
		return nil
	}

	scaled := price.Round(2)
	if at.IsZero() {
		at = time.Now().UTC()
	}

	for i := range pending {
		order := pending[i]
		if !order.LimitPrice.Valid || scaled.LessThan(order.LimitPrice.Decimal) {
			continue
		}

		orderID := order.OrderID
		s.orderLocks.Lock(orderID)
		err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.reconcilePending(ctx, orderID, scaled, at)
		})
		s.orderLocks.Unlock(orderID)
		if err != nil {
			log.Error().Err(err).
				Str("order_id", orderID).
				Str("symbol", symbol).
				Msg("pending order reconciliation failed")
		}
	}
	return nil
}

// CancelOrder cancels a pending order and refunds its reservation in full.
func (s *Service) CancelOrder(ctx context.Context, accountID, orderID string) (*Order, error) {
	s.orderLocks.Lock(orderID)
	defer s.orderLocks.Unlock(orderID)

	var result *Order
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil || order.AccountID != accountID {
			return types.NewNotFoundError("order not found")
		}
		if !order.IsPending() {
			return types.NewStateError("only pending orders can be cancelled")
		}

		if order.Notional.IsPositive() {
			if err := s.ledger.Refund(ctx, accountID, order.Notional); err != nil {
				return err
			}
		}

		cancelled := order.Cancel(time.Now().UTC(), "client requested cancellation")
		if err := s.repo.Update(ctx, &cancelled); err != nil {
			return err
		}

		if s.metrics != nil {
			s.metrics.RecordOrder(cancelled.OrderType, cancelled.Status)
		}
		s.audit(ctx, &cancelled, EventOrderCancelled, map[string]interface{}{"reason": "CLIENT_REQUEST"})
		s.notify(&cancelled, EventOrderCancelled,
			fmt.Sprintf("Order %s cancelled", cancelled.Symbol),
			map[string]interface{}{"status": StatusCancelled})

		result = &cancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListOrders returns all of the account's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, accountID string) ([]Order, error) {
	return s.repo.FindByAccount(ctx, accountID)
}

// GetOrder returns one of the account's orders.
func (s *Service) GetOrder(ctx context.Context, accountID, orderID string) (*Order, error) {
	order, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.AccountID != accountID {
		return nil, types.NewNotFoundError("order not found")
	}
	return order, nil
}

// ListAuditEntries returns the append-only audit trail of one of the
// account's orders.
func (s *Service) ListAuditEntries(ctx context.Context, accountID, orderID string) ([]AuditEntry, error) {
	if _, err := s.GetOrder(ctx, accountID, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListAudit(ctx, orderID)
}

// placeImmediate debits the fill notional and persists a COMPLETED order, or
// persists a FAILED order when the debit is rejected by the ledger. Storage
// failures abort the scope instead.
func (s *Service) placeImmediate(
	ctx context.Context,
	accountID string,
	stock *market.Stock,
	orderType string,
	quantity int,
	clientOrderID *string,
	limitPrice decimal.NullDecimal,
	snapshot market.Snapshot,
) (*Order, error) {
	price := snapshot.Price.Round(2)
	notional := price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	now := time.Now().UTC()
	executedAt := snapshot.Timestamp
	if executedAt.IsZero() {
		executedAt = now
	}

	order := Order{
		OrderID:       uuid.New().String(),
		AccountID:     accountID,
		StockID:       stock.StockID,
		Symbol:        stock.Symbol,
		Side:          SideBuy,
		OrderType:     orderType,
		Quantity:      quantity,
		LimitPrice:    limitPrice,
		ClientOrderID: clientOrderID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, debitErr := s.ledger.Debit(ctx, accountID, notional); debitErr != nil {
		if !types.IsDomainError(debitErr) {
			return nil, debitErr
		}
		failed := order.Fail(debitErr.Error(), price, executedAt)
		if err := s.repo.Create(ctx, &failed); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.RecordOrder(failed.OrderType, failed.Status)
		}
		s.audit(ctx, &failed, EventOrderFailed, map[string]interface{}{"reason": debitErr.Error()})
		s.notify(&failed, EventOrderFailed,
			fmt.Sprintf("Order %s failed", failed.Symbol),
			map[string]interface{}{"reason": debitErr.Error()})
		return &failed, nil
	}

	completed := order.Complete(price, executedAt)
	if err := s.repo.Create(ctx, &completed); err != nil {
		return nil, err
	}
	if err := s.positions.ApplyFill(ctx, accountID, stock.StockID, price, quantity, executedAt); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrder(completed.OrderType, completed.Status)
	}
	attrs := fillAuditAttributes(completed.Notional, price, limitPrice)
	s.audit(ctx, &completed, EventOrderCompleted, attrs)
	s.notify(&completed, EventOrderCompleted,
		fmt.Sprintf("Order %s filled (%d)", completed.Symbol, completed.Quantity), attrs)

	return &completed, nil
}

// placePendingLimit reserves the full limit notional and persists the order
// PENDING.
func (s *Service) placePendingLimit(
	ctx context.Context,
	accountID string,
	stock *market.Stock,
	quantity int,
	clientOrderID *string,
	limitPrice decimal.Decimal,
	reserved decimal.Decimal,
) (*Order, error) {
	if _, err := s.ledger.Debit(ctx, accountID, reserved); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pending := Order{
		OrderID:       uuid.New().String(),
		AccountID:     accountID,
		StockID:       stock.StockID,
		Symbol:        stock.Symbol,
		Side:          SideBuy,
		OrderType:     TypeLimit,
		Quantity:      quantity,
		LimitPrice:    decimal.NewNullDecimal(limitPrice),
		Notional:      reserved,
		ClientOrderID: clientOrderID,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, &pending); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrder(pending.OrderType, pending.Status)
	}
	attrs := map[string]interface{}{
		"limitPrice":       limitPrice.StringFixed(2),
		"reservedNotional": reserved.StringFixed(2),
	}
	s.audit(ctx, &pending, EventOrderPending, attrs)
	s.notify(&pending, EventOrderPending,
		fmt.Sprintf("Order %s pending", pending.Symbol), attrs)

	return &pending, nil
}

// reconcilePending settles one pending order against the tick price: debit
// the shortfall when the price moved up, refund the excess when it moved
// down, then complete the order and apply the fill. When the shortfall debit
// is rejected, the whole reservation is refunded and the order fails. The
// still-pending check runs inside the scope so an order resolved by a
// concurrent attempt is skipped, not double-executed.
func (s *Service) reconcilePending(ctx context.Context, orderID string, price decimal.Decimal, at time.Time) error {
	current, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if current == nil || !current.IsPending() {
		return nil
	}

	reserved := current.Notional
	actual := price.Mul(decimal.NewFromInt(int64(current.Quantity))).Round(2)
	difference := actual.Sub(reserved).Round(2)

	extraDebited := false
	completeErr := func() error {
		if difference.IsPositive() {
			if _, err := s.ledger.Debit(ctx, current.AccountID, difference); err != nil {
				return err
			}
			extraDebited = true
		}

		completed := current.Complete(price, at)
		if err := s.repo.Update(ctx, &completed); err != nil {
			return err
		}

		if difference.IsNegative() {
			if err := s.ledger.Refund(ctx, current.AccountID, difference.Abs()); err != nil {
				return err
			}
		}

		if err := s.positions.ApplyFill(ctx, current.AccountID, current.StockID, price, current.Quantity, at); err != nil {
			return err
		}

		if s.metrics != nil {
			s.metrics.RecordOrder(completed.OrderType, completed.Status)
		}
		attrs := fillAuditAttributes(actual, price, current.LimitPrice)
		s.audit(ctx, &completed, EventOrderCompleted, attrs)
		s.notify(&completed, EventOrderCompleted,
			fmt.Sprintf("Order %s filled (%d)", completed.Symbol, completed.Quantity), attrs)
		return nil
	}()
	if completeErr == nil {
		return nil
	}
	if !types.IsDomainError(completeErr) {
		// Storage failure: abort the scope, everything rolls back.
		return completeErr
	}

	// Compensate inside the same scope, then record the failure.
	if extraDebited && difference.IsPositive() {
		if err := s.ledger.Refund(ctx, current.AccountID, difference); err != nil {
			return err
		}
	}
	if reserved.IsPositive() {
		if err := s.ledger.Refund(ctx, current.AccountID, reserved); err != nil {
			return err
		}
	}

	failed := current.Fail(completeErr.Error(), price, at)
	if err := s.repo.Update(ctx, &failed); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordOrder(failed.OrderType, failed.Status)
	}
	s.audit(ctx, &failed, EventOrderFailed, map[string]interface{}{"reason": completeErr.Error()})
	s.notify(&failed, EventOrderFailed,
		fmt.Sprintf("Order %s failed", failed.Symbol),
		map[string]interface{}{"reason": completeErr.Error()})
	return nil
}

// preTradeChecks verifies the account can fund the order and, for LIMIT
// orders, that the limit stays within +/-50% of the market price.
func (s *Service) preTradeChecks(ctx context.Context, accountID, orderType string, quantity int, limitPrice, marketPrice decimal.Decimal) error {
	reference := marketPrice.Round(2)
	if orderType == TypeLimit {
		reference = limitPrice
	}
	if !reference.IsPositive() {
		return types.NewValidationError("reference price unavailable")
	}

	notional := reference.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	if err := s.ledger.EnsureBalance(ctx, accountID, notional); err != nil {
		return err
	}

	if orderType == TypeLimit {
		scaledMarket := marketPrice.Round(2)
		upper := scaledMarket.Mul(decimal.NewFromFloat(1.5)).Round(2)
		lower := scaledMarket.Mul(decimal.NewFromFloat(0.5)).Round(2)
		if limitPrice.LessThan(lower) || limitPrice.GreaterThan(upper) {
			return types.NewValidationError("limit price must stay within +/-50%% of the market price")
		}
	}
	return nil
}

// audit appends a transition record. The trail is best-effort: a failed
// append is logged without failing the order.
func (s *Service) audit(ctx context.Context, order *Order, eventType string, extra map[string]interface{}) {
	payload := map[string]interface{}{
		"accountId": order.AccountID,
		"symbol":    order.Symbol,
		"status":    order.Status,
	}
	for key, value := range extra {
		payload[key] = value
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to encode audit payload")
		return
	}

	entry := &AuditEntry{
		OrderID:   order.OrderID,
		EventType: eventType,
		Payload:   string(raw),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("order_id", order.OrderID).
			Str("event_type", eventType).
			Msg("failed to append order audit entry")
	}
}

// notify publishes a best-effort account notification and logs the event.
func (s *Service) notify(order *Order, category, message string, payload map[string]interface{}) {
	log.Info().
		Str("order_id", order.OrderID).
		Str("account_id", order.AccountID).
		Str("category", category).
		Str("status", order.Status).
		Str("symbol", order.Symbol).
		Msg("order event")

	if s.notifier == nil {
		return
	}
	raw, _ := json.Marshal(payload)
	if err := s.notifier.Publish(order.AccountID, category, message, order.OrderID, string(raw)); err != nil {
		log.Error().Err(err).
			Str("order_id", order.OrderID).
			Str("category", category).
			Msg("order notification failed")
	}
}

func fillAuditAttributes(notional, executionPrice decimal.Decimal, limitPrice decimal.NullDecimal) map[string]interface{} {
	attrs := map[string]interface{}{
		"notional":  notional.StringFixed(2),
		"fillPrice": executionPrice.StringFixed(2),
	}
	if limitPrice.Valid {
		attrs["limitPrice"] = limitPrice.Decimal.StringFixed(2)
	}
	return attrs
}

func validateSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", types.NewValidationError("symbol is required")
	}
	return symbol, nil
}

func validateSide(raw string) error {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case SideBuy:
		return nil
	case "SELL":
		return types.NewValidationError("sell orders are not supported in this prototype")
	default:
		return types.NewValidationError("unsupported side: %s", raw)
	}
}

func parseType(raw string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case TypeMarket:
		return TypeMarket, nil
	case TypeLimit:
		return TypeLimit, nil
	default:
		return "", types.NewValidationError("unsupported order type: %s", raw)
	}
}

func parseQuantity(raw string) (int, error) {
	quantity, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || quantity <= 0 {
		return 0, types.NewValidationError("quantity must be a positive integer")
	}
	if quantity > maxOrderQuantity {
		return 0, types.NewValidationError("maximum allowed quantity is %d shares", maxOrderQuantity)
	}
	return quantity, nil
}

func parseLimitPrice(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, types.NewValidationError("limit price is required for LIMIT orders")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, types.NewValidationError("invalid limit price: %s", raw)
	}
	return price.Round(2), nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SalahGhedda/BrokerX/internal/auth"
	"github.com/SalahGhedda/BrokerX/internal/database"
	"github.com/SalahGhedda/BrokerX/internal/market"
	"github.com/SalahGhedda/BrokerX/internal/metrics"
	"github.com/SalahGhedda/BrokerX/internal/notification"
	"github.com/SalahGhedda/BrokerX/internal/orders"
	"github.com/SalahGhedda/BrokerX/internal/portfolio"
	"github.com/SalahGhedda/BrokerX/internal/txn"
	"github.com/SalahGhedda/BrokerX/internal/wallet"
	"github.com/SalahGhedda/BrokerX/pkg/middleware"
)

const (
	minOrders     = 15
	maxOrders     = 150
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
	jwtSecret     = "brokerx-sim-secret"
	depositAmount = "250000.00"
)

var (
	symbols    = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"}
	orderTypes = []string{"MARKET", "LIMIT"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the brokerage API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient registers a fresh account, activates it, funds the
// wallet and obtains a JWT for the trading calls.
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"signup":  {name: "Signup"},
			"verify":  {name: "Verify Account"},
			"token":   {name: "Authentication"},
			"deposit": {name: "Deposit"},
			"place":   {name: "Place Order"},
			"get":     {name: "Get Order"},
			"cancel":  {name: "Cancel Order"},
		},
	}

	email := fmt.Sprintf("sim-%s@brokerx.dev", uuid.New().String()[:8])
	accountID, err := sc.signup(email, "Simulation Client", "sim-password-1")
	if err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}

	if err := sc.verify(accountID); err != nil {
		return nil, fmt.Errorf("failed to verify account: %w", err)
	}

	token, err := sc.authenticate(email, "sim-password-1")
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	if err := sc.deposit(depositAmount); err != nil {
		return nil, fmt.Errorf("failed to fund wallet: %w", err)
	}

	return sc, nil
}

// signup registers a new account and returns its id
func (sc *simulationClient) signup(email, name, password string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["signup"].addDuration(time.Since(start))
	}()

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/signup", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("signup failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			AccountID string `json:"account_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Data.AccountID == "" {
		return "", fmt.Errorf("no account id in signup response")
	}

	return result.Data.AccountID, nil
}

// verify activates a pending account
func (sc *simulationClient) verify(accountID string) error {
	start := time.Now()
	defer func() {
		sc.stats["verify"].addDuration(time.Since(start))
	}()

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/verify/%s", sc.baseURL, accountID),
		"application/json",
		nil,
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("verify failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// authenticate exchanges credentials for a JWT token
func (sc *simulationClient) authenticate(email, password string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["token"].addDuration(time.Since(start))
	}()

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// deposit credits the simulation wallet
func (sc *simulationClient) deposit(amount string) error {
	start := time.Now()
	defer func() {
		sc.stats["deposit"].addDuration(time.Since(start))
	}()

	body, err := json.Marshal(map[string]string{
		"amount":          amount,
		"idempotency_key": uuid.New().String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(
		"POST",
		fmt.Sprintf("%s/api/v1/wallet/deposits", sc.baseURL),
		bytes.NewBuffer(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("deposit failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// placeOrder submits a new order to the API
// Returns the order ID and status on success
func (sc *simulationClient) placeOrder(cmd *orders.PlaceOrderCommand) (string, string, error) {
	start := time.Now()
	defer func() {
		sc.stats["place"].addDuration(time.Since(start))
	}()

	body, err := json.Marshal(cmd)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequest(
		"POST",
		fmt.Sprintf("%s/api/v1/orders", sc.baseURL),
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", "", err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("response", string(respBody)).Msg("Place order response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("place order failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			OrderID string `json:"order_id"`
			Status  string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if result.Data.OrderID == "" {
		return "", "", fmt.Errorf("no order ID in response: %s", string(respBody))
	}

	return result.Data.OrderID, result.Data.Status, nil
}

// getOrder retrieves the current state of an order
func (sc *simulationClient) getOrder(orderID string) (*orders.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats["get"].addDuration(time.Since(start))
	}()

	req, err := http.NewRequest(
		"GET",
		fmt.Sprintf("%s/api/v1/orders/%s", sc.baseURL, orderID),
		nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get order failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Success bool         `json:"success"`
		Data    orders.Order `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	return &result.Data, nil
}

// cancelOrder cancels a pending order
func (sc *simulationClient) cancelOrder(orderID string) error {
	start := time.Now()
	defer func() {
		sc.stats["cancel"].addDuration(time.Since(start))
	}()

	req, err := http.NewRequest(
		"DELETE",
		fmt.Sprintf("%s/api/v1/orders/%s", sc.baseURL, orderID),
		nil,
	)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cancel order failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the brokerage simulation
// It starts a local API server in-process and drives concurrent trading clients
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	type placedOrder struct {
		orderID string
		status  string
	}
	placedChan := make(chan placedOrder, targetOrders)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < targetOrders/numWorkers; j++ {
				cmd := randomOrder()
				orderID, status, err := simClient.placeOrder(cmd)
				if err != nil {
					log.Error().Err(err).
						Int("worker_id", workerID).
						Str("symbol", cmd.Symbol).
						Msg("Failed to place order")
					continue
				}

				placedChan <- placedOrder{orderID: orderID, status: status}
				log.Info().
					Int("worker_id", workerID).
					Str("order_id", orderID).
					Str("symbol", cmd.Symbol).
					Str("type", cmd.Type).
					Str("status", status).
					Msg("Order placed")

				time.Sleep(time.Duration(rand.Intn(300)) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(placedChan)

	var placed []placedOrder
	for order := range placedChan {
		placed = append(placed, order)
	}
	log.Info().Int("orders_placed", len(placed)).Msg("All orders placed")

	stats := struct {
		TotalOrders     int
		Completed       int
		StillPending    int
		Failed          int
		Cancelled       int
		TotalValue      float64
		StartTime       time.Time
		Symbols         map[string]int
		Types           map[string]int
	}{
		StartTime: time.Now(),
		Symbols:   make(map[string]int),
		Types:     make(map[string]int),
	}
	stats.TotalOrders = len(placed)

	// Cancel roughly a quarter of the orders that are still pending, then
	// let the ticker work on the rest.
	for _, p := range placed {
		if p.status == orders.StatusPending && rand.Intn(4) == 0 {
			if err := simClient.cancelOrder(p.orderID); err != nil {
				log.Debug().Err(err).Str("order_id", p.orderID).Msg("Cancel attempt rejected")
			}
		}
	}

	// Give pending limit orders a few tick cycles to resolve
	time.Sleep(5 * time.Second)

	for _, p := range placed {
		order, err := simClient.getOrder(p.orderID)
		if err != nil {
			log.Error().Err(err).Str("order_id", p.orderID).Msg("Failed to fetch order")
			continue
		}

		stats.Symbols[order.Symbol]++
		stats.Types[order.OrderType]++

		switch order.Status {
		case orders.StatusCompleted:
			stats.Completed++
			value, _ := order.Notional.Float64()
			stats.TotalValue += value
		case orders.StatusPending:
			stats.StillPending++
		case orders.StatusFailed:
			stats.Failed++
		case orders.StatusCancelled:
			stats.Cancelled++
		}
	}

	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BROKERAGE SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Order Statistics
------------------
Total Orders:     %d
Completed:        %d
Still Pending:    %d
Failed:           %d
Cancelled:        %d
Total Value:      $%.2f
Duration:         %v

Symbol Distribution
--------------------
`, stats.TotalOrders, stats.Completed, stats.StillPending, stats.Failed, stats.Cancelled,
		stats.TotalValue, duration.Round(time.Millisecond))

	maxSymbolCount := 0
	for _, count := range stats.Symbols {
		if count > maxSymbolCount {
			maxSymbolCount = count
		}
	}
	for symbol, count := range stats.Symbols {
		barLength := int(float64(count) / float64(maxSymbolCount) * 20)
		bar := strings.Repeat("#", barLength)
		fmt.Printf("%-6s: %s (%d)\n", symbol, bar, count)
	}

	fmt.Println("\nType Distribution")
	fmt.Println("------------------")
	for orderType, count := range stats.Types {
		barLength := int(float64(count) / float64(stats.TotalOrders) * 20)
		bar := strings.Repeat("#", barLength)
		fmt.Printf("%-6s: %s (%d)\n", orderType, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	completionRate := float64(stats.Completed) / float64(stats.TotalOrders) * 100
	log.Info().
		Float64("completion_rate", completionRate).
		Int("total_orders", stats.TotalOrders).
		Int("completed", stats.Completed).
		Float64("total_value", stats.TotalValue).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// randomOrder builds a random BUY order. Limit prices land within the
// accepted band around the catalogue's seeded prices.
func randomOrder() *orders.PlaceOrderCommand {
	cmd := &orders.PlaceOrderCommand{
		Symbol:        symbols[rand.Intn(len(symbols))],
		Side:          "BUY",
		Type:          orderTypes[rand.Intn(len(orderTypes))],
		Quantity:      fmt.Sprintf("%d", rand.Intn(20)+1),
		ClientOrderID: uuid.New().String(),
	}
	if cmd.Type == "LIMIT" {
		// 80..130 percent of a rough reference price keeps most orders in band
		reference := map[string]float64{
			"AAPL": 185.32, "GOOGL": 141.80, "MSFT": 409.06, "AMZN": 178.15, "TSLA": 251.44,
		}[cmd.Symbol]
		factor := 0.8 + rand.Float64()*0.5
		cmd.LimitPrice = fmt.Sprintf("%.2f", reference*factor)
	}
	return cmd
}

// startServer initializes and starts the brokerage API server in-process
// using an in-memory database so simulation runs leave nothing behind
func startServer() error {
	db, err := database.NewDatabase("file::memory:?cache=shared")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	manager := txn.NewGormManager(db)
	registry := metrics.NewRegistry()

	walletService := wallet.NewService(wallet.NewDatabase(db), wallet.NewMockGateway(), manager, registry)
	authService := auth.NewService(auth.NewDatabase(db), walletService, jwtSecret)
	marketService := market.NewService(market.NewDatabase(db), market.NewRandomWalkFeed(time.Now().UnixNano()))
	if err := marketService.SeedCatalogue(context.Background()); err != nil {
		return fmt.Errorf("failed to seed catalogue: %w", err)
	}
	portfolioService := portfolio.NewService(portfolio.NewDatabase(db))
	notificationService := notification.NewService(50)

	orderService := orders.NewService(orders.Deps{
		Repo:      orders.NewDatabase(db),
		Accounts:  authService,
		Market:    marketService,
		Ledger:    walletService,
		Positions: portfolioService,
		Notifier:  notificationService,
		Metrics:   registry,
		Tx:        manager,
	})

	ticker := market.NewTicker(marketService, orderService, time.Second)
	go ticker.Start(context.Background())

	router := gin.Default()

	authHandlers := auth.NewGinHandlers(authService)
	marketHandlers := market.NewGinHandlers(marketService)
	walletHandlers := wallet.NewGinHandlers(walletService)
	orderHandlers := orders.NewGinHandlers(orderService)
	portfolioHandlers := portfolio.NewGinHandlers(portfolioService)
	notificationHandlers := notification.NewGinHandlers(notificationService)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", authHandlers.SignupHandler())
			authGroup.POST("/verify/:account_id", authHandlers.VerifyHandler())
			authGroup.POST("/token", authHandlers.TokenHandler())
		}

		marketGroup := v1.Group("/market")
		{
			marketGroup.GET("/stocks", marketHandlers.ListStocksHandler())
			marketGroup.GET("/quote/:symbol", marketHandlers.QuoteHandler())
		}

		watchlistGroup := v1.Group("/market/watchlist")
		watchlistGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			watchlistGroup.GET("", marketHandlers.WatchlistHandler())
			watchlistGroup.POST("/:symbol", marketHandlers.FollowHandler())
			watchlistGroup.DELETE("/:symbol", marketHandlers.UnfollowHandler())
		}

		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			walletGroup.POST("/deposits", walletHandlers.DepositHandler())
			walletGroup.GET("/balance", walletHandlers.BalanceHandler())
			walletGroup.GET("/transactions", walletHandlers.TransactionsHandler())
		}

		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			orderGroup.POST("", orderHandlers.PlaceOrderHandler())
			orderGroup.GET("", orderHandlers.ListOrdersHandler())
			orderGroup.GET("/:order_id", orderHandlers.GetOrderHandler())
			orderGroup.DELETE("/:order_id", orderHandlers.CancelOrderHandler())
			orderGroup.GET("/:order_id/audit", orderHandlers.OrderAuditHandler())
		}

		portfolioGroup := v1.Group("/portfolio")
		portfolioGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			portfolioGroup.GET("/positions", portfolioHandlers.ListPositionsHandler())
		}

		notificationGroup := v1.Group("/notifications")
		notificationGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			notificationGroup.GET("", notificationHandlers.ListHandler())
			notificationGroup.DELETE("", notificationHandlers.ClearHandler())
		}

		v1.GET("/metrics", registry.Handler())
	}

	return router.Run(":8080")
}

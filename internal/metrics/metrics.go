package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Registry is a minimal in-process counter set. The prototype exposes it as
// JSON; there is no external metrics system.
type Registry struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]int64)}
}

func (r *Registry) inc(name string) {
	r.mu.Lock()
	r.counters[name]++
	r.mu.Unlock()
}

// RecordOrder counts one order outcome per (type, status).
func (r *Registry) RecordOrder(orderType, status string) {
	r.inc(fmt.Sprintf("orders_%s_%s", orderType, status))
}

// RecordDeposit counts one deposit outcome per ledger state.
func (r *Registry) RecordDeposit(state string) {
	r.inc(fmt.Sprintf("deposits_%s", state))
}

// RecordTick counts one processed price tick.
func (r *Registry) RecordTick() {
	r.inc("market_ticks")
}

// Snapshot returns a copy of all counters.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counters))
	for name, value := range r.counters {
		out[name] = value
	}
	return out
}

// Handler serves the counters as JSON.
func (r *Registry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Snapshot())
	}
}

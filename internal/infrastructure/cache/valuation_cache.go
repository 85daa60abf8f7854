// Package cache provides the valuation result cache with PostgreSQL LISTEN/NOTIFY invalidation.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	gocache "github.com/patrickmn/go-cache"

	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
	"stockval/pkg/logger"
)

// MovementsChannel is notified by the stock_movements trigger with a scope payload
// ("product:<uuid>", "client:<uuid>") whenever a movement is appended.
const MovementsChannel = "stock_movements_changed"

// Compile-time check that ValuationCache implements movements.Cache.
var _ movements.Cache = (*ValuationCache)(nil)

// ValuationCache keeps computed valuations for a TTL. Appends upstream drop the
// affected scope immediately when a pool is attached; without one, TTL alone bounds staleness.
type ValuationCache struct {
	items *gocache.Cache
	pool  *pgxpool.Pool

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewValuationCache creates a cache; pool may be nil.
func NewValuationCache(ttl time.Duration, pool *pgxpool.Pool) *ValuationCache {
	return &ValuationCache{
		items: gocache.New(ttl, 2*ttl),
		pool:  pool,
	}
}

func cacheKey(scope movements.Scope, method valuation.Method) string {
	return scope.String() + "|" + string(method)
}

// Get returns the cached result for scope and method.
func (c *ValuationCache) Get(scope movements.Scope, method valuation.Method) (*valuation.Result, bool) {
	v, ok := c.items.Get(cacheKey(scope, method))
	if !ok {
		return nil, false
	}
	res, ok := v.(*valuation.Result)
	return res, ok
}

// Set stores a result with the default TTL.
func (c *ValuationCache) Set(scope movements.Scope, method valuation.Method, res *valuation.Result) {
	c.items.SetDefault(cacheKey(scope, method), res)
}

// Invalidate drops every method's result for the scope rendered as payload.
// An empty payload flushes everything.
func (c *ValuationCache) Invalidate(payload string) int {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		n := c.items.ItemCount()
		c.items.Flush()
		return n
	}

	removed := 0
	prefix := payload + "|"
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
			removed++
		}
	}
	return removed
}

// Start begins listening for NOTIFY events. It is a no-op without a pool.
func (c *ValuationCache) Start(ctx context.Context) {
	if c.pool == nil {
		return
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.started {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "valuation cache listener started", "channel", MovementsChannel)
}

// Stop gracefully stops the listener.
func (c *ValuationCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	cancel()
	c.wg.Wait()
	logger.Info(context.Background(), "valuation cache listener stopped")
}

// listenLoop holds a dedicated connection on LISTEN and reconnects on failure.
func (c *ValuationCache) listenLoop() {
	defer c.wg.Done()

	for c.ctx.Err() == nil {
		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			c.pause()
			continue
		}

		if _, err := conn.Exec(c.ctx, "LISTEN "+MovementsChannel); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			c.pause()
			continue
		}

		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *ValuationCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		// Bounded wait so shutdown is noticed.
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Warn(c.ctx, "LISTEN connection lost", "error", err)
			return
		}

		removed := c.Invalidate(notification.Payload)
		logger.Debug(c.ctx, "valuation cache invalidated",
			"payload", notification.Payload,
			"removed", removed,
		)
	}
}

func (c *ValuationCache) pause() {
	select {
	case <-c.ctx.Done():
	case <-time.After(time.Second):
	}
}

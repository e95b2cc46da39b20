package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("gate")

// block entries share the kv store with unrelated keys
const blockKeyPrefix = "ip_block:"

// DefaultBlockTTL is how long a block entry lives when no explicit
// duration is given. There is no unblock operation; entries expire.
const DefaultBlockTTL = 24 * time.Hour

// BlockList rejects requests from blocked source addresses. Checks are
// best-effort: if the kv store is unreachable the request is allowed
// through, because a cache outage must not become a full-service outage
// for legitimate traffic.
type BlockList struct {
	store  KVStore
	logger *slog.Logger
}

func NewBlockList(store KVStore, logger *slog.Logger) *BlockList {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlockList{
		store:  store,
		logger: logger.With("system", "gate"),
	}
}

// Middleware checks the caller's address against the block list before
// invoking downstream handlers. Blocked callers get a 404, not a 403:
// a prober should not learn that blocking is in effect.
func (b *BlockList) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "blockListCheck")
			defer span.End()
			c.SetRequest(c.Request().WithContext(ctx))

			addr := c.RealIP()
			if addr == "" {
				// nothing to match against the block list
				blockChecksCounter.WithLabelValues("no_addr").Inc()
				return next(c)
			}
			blocked, err := b.store.Exists(ctx, blockKeyPrefix+addr)
			if err != nil {
				b.logger.Warn("block list check failed, allowing request", "addr", addr, "err", err)
				blockChecksCounter.WithLabelValues("error").Inc()
				return next(c)
			}
			if blocked {
				blockChecksCounter.WithLabelValues("blocked").Inc()
				return echo.ErrNotFound
			}
			blockChecksCounter.WithLabelValues("pass").Inc()
			return next(c)
		}
	}
}

// Block writes a self-expiring block entry for addr. A non-positive ttl
// uses DefaultBlockTTL. Write failures are logged and swallowed: the
// administrative caller must not be failed by a transient cache outage.
func (b *BlockList) Block(ctx context.Context, addr string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultBlockTTL
	}
	if err := b.store.SetWithTTL(ctx, blockKeyPrefix+addr, "1", ttl); err != nil {
		blockWritesCounter.WithLabelValues("error").Inc()
		b.logger.Warn("failed to write ip block", "addr", addr, "err", err)
		return
	}
	blockWritesCounter.WithLabelValues("ok").Inc()
	b.logger.Info("ip block written", "addr", addr, "ttl", ttl)
}

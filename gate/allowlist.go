package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAllowlistTTL is how long a fetched allowlist snapshot is
// considered fresh.
const DefaultAllowlistTTL = 5 * time.Minute

type AllowlistConfig struct {
	// SecretRef locates the allowlist payload in the secret store. An
	// empty ref disables the allowlist entirely: every query answers
	// false and the backend is never contacted.
	SecretRef string

	TTL time.Duration

	// RefreshLimit optionally bounds how often a refresh may hit the
	// secret store. A disallowed attempt is treated like a fetch
	// failure, so a flapping backend is not hammered on every request.
	RefreshLimit *rate.Limiter
}

// AllowlistCache answers whether an identifier belongs to the
// externally managed set of privileged automation accounts. The set
// governs elevated capability, so every ambiguous state (disabled,
// never fetched, first fetch failed) resolves to deny.
type AllowlistCache struct {
	cfg    AllowlistConfig
	source SecretSource
	logger *slog.Logger
	set    *cachedSet[string]
}

func NewAllowlistCache(source SecretSource, cfg AllowlistConfig, logger *slog.Logger) *AllowlistCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultAllowlistTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "gate")
	c := &AllowlistCache{
		cfg:    cfg,
		source: source,
		logger: logger,
	}
	c.set = newCachedSet("allowlist", cfg.TTL, c.fetchMembers, logger)
	return c
}

func (c *AllowlistCache) fetchMembers(ctx context.Context) ([]string, error) {
	if c.cfg.RefreshLimit != nil && !c.cfg.RefreshLimit.Allow() {
		return nil, fmt.Errorf("allowlist refresh rate limited")
	}
	payload, err := c.source.FetchSecretPayload(ctx, c.cfg.SecretRef)
	if err != nil {
		return nil, fmt.Errorf("fetching allowlist secret: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, fmt.Errorf("parsing allowlist payload: %w", err)
	}
	return ids, nil
}

// Enabled indicates whether a secret ref is configured at all.
func (c *AllowlistCache) Enabled() bool {
	return c.cfg.SecretRef != ""
}

// IsAllowed reports whether id is on the allowlist. It never fails:
// backend errors resolve to the last known snapshot when one exists,
// and to false otherwise.
func (c *AllowlistCache) IsAllowed(ctx context.Context, id string) bool {
	if !c.Enabled() {
		return false
	}
	return c.set.contains(ctx, id)
}

// Warm eagerly fetches the allowlist, typically at process startup or
// from a scheduled refresh job. Failure is logged and swallowed;
// serving must not depend on warm-up succeeding.
func (c *AllowlistCache) Warm(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.set.refresh(ctx, true); err != nil {
		c.logger.Warn("allowlist warm-up failed", "err", err)
	}
}

// Reset clears the cached snapshot. Test and runbook use only.
func (c *AllowlistCache) Reset() {
	c.set.reset()
}

package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parley-social/parley/models"
)

// DefaultSystemOwnerTTL is how long a fetched system-owner snapshot is
// considered fresh.
const DefaultSystemOwnerTTL = 5 * time.Minute

type PrincipalType string

const (
	PrincipalTypeHuman = PrincipalType("human")
	PrincipalTypeAgent = PrincipalType("agent")
)

// Principal is the authenticated caller, as established by the upstream
// auth layer. A nil *Principal means the request is unauthenticated.
type Principal struct {
	ID   uint64
	Type PrincipalType
}

type SystemOwnerSource interface {
	GetSystemOwnerIDs(ctx context.Context) ([]uint64, error)
}

type AgentDirectory interface {
	// FindAgentByID returns nil (and no error) when the agent does not
	// exist.
	FindAgentByID(ctx context.Context, id uint64) (*models.Agent, error)
}

// SystemAccountCache answers whether an account is a designated system
// owner, and whether the current caller is an automated agent owned by
// one. Only the owner set is memoized; agent-ownership lookups are a
// live repository call every time.
type SystemAccountCache struct {
	agents AgentDirectory
	logger *slog.Logger
	owners *cachedSet[uint64]
}

func NewSystemAccountCache(users SystemOwnerSource, agents AgentDirectory, ttl time.Duration, logger *slog.Logger) *SystemAccountCache {
	if ttl <= 0 {
		ttl = DefaultSystemOwnerTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "gate")
	return &SystemAccountCache{
		agents: agents,
		logger: logger,
		owners: newCachedSet("system_owners", ttl, users.GetSystemOwnerIDs, logger),
	}
}

// IsSystemOwner reports whether id is in the system-owner set. Same
// failure policy as the allowlist: a first-fetch failure denies, a
// later refresh failure serves the previous snapshot. The first-fetch
// case was never a product decision either way; denying keeps it
// consistent with the allowlist.
func (c *SystemAccountCache) IsSystemOwner(ctx context.Context, id uint64) bool {
	return c.owners.contains(ctx, id)
}

// IsSystemAgent reports whether the caller is an automated agent whose
// owning account is a system owner. Unlike the membership queries, the
// per-agent lookup has no cached fallback, so a repository error
// propagates; callers should treat it as "cannot determine" and deny.
func (c *SystemAccountCache) IsSystemAgent(ctx context.Context, p *Principal) (bool, error) {
	if p == nil || p.Type != PrincipalTypeAgent {
		return false, nil
	}
	agent, err := c.agents.FindAgentByID(ctx, p.ID)
	if err != nil {
		return false, fmt.Errorf("looking up agent %d: %w", p.ID, err)
	}
	if agent == nil {
		return false, nil
	}
	return c.IsSystemOwner(ctx, agent.OwnerID), nil
}

// Reset clears the cached owner set. Test and runbook use only.
func (c *SystemAccountCache) Reset() {
	c.owners.reset()
}

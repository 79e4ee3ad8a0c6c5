package poll

import (
	"context"
	"math/big"
	"math/rand"

	"go.uber.org/zap"
)

// DirectoryEntry is what the external membership store knows about a voter.
type DirectoryEntry struct {
	Email string
	XP    *big.Float
}

// MemberDirectory looks a voter up in the external membership store by
// platform username. A (nil, nil) return means the voter is unknown there;
// errors are non-fatal to callers and downgrade to the fallback policy.
type MemberDirectory interface {
	LookupVoter(ctx context.Context, username string) (*DirectoryEntry, error)
}

// FallbackPolicy decides the XP level of a voter the directory cannot
// resolve. The choice of policy is an explicit configuration decision, not
// hidden nondeterminism: resolutions log and flag every fallback.
type FallbackPolicy interface {
	FallbackXP(voter ReactingUser) *big.Float
}

// RandomFallback assigns a pseudo-random XP level on a fixed base, matching
// the reference deployment. The result always lands in [Base, 2*Base), so an
// unresolved voter's power stays within the lowest tiers.
type RandomFallback struct {
	Base int64
	rng  *rand.Rand
}

// NewRandomFallback returns the default unknown-voter policy with the
// reference base of 1,000,000 XP.
func NewRandomFallback() *RandomFallback {
	return &RandomFallback{Base: 1_000_000}
}

func (f *RandomFallback) FallbackXP(ReactingUser) *big.Float {
	n := f.Base + f.randInt63n(f.Base)
	return new(big.Float).SetInt64(n)
}

func (f *RandomFallback) randInt63n(n int64) int64 {
	if f.rng != nil {
		return f.rng.Int63n(n)
	}
	return rand.Int63n(n)
}

// FixedFallback assigns the same XP level to every unresolved voter. Useful
// for deployments that want unknown voters pinned to power 1, and for tests.
type FixedFallback struct {
	XP *big.Float
}

func (f *FixedFallback) FallbackXP(ReactingUser) *big.Float { return f.XP }

// CachedXP is the per-(poll, voter) resolution memo. Caching the first
// resolution keeps repeated passes over an unchanged reaction set
// deterministic even when the fallback path was taken.
type CachedXP struct {
	XP       *big.Float
	Verified bool
	Fallback bool
	Email    string
}

// XPCache stores resolved XP levels per poll. A (nil, nil) Lookup return
// means no entry.
type XPCache interface {
	Lookup(ctx context.Context, pollID, voterID string) (*CachedXP, error)
	Store(ctx context.Context, pollID, voterID string, entry *CachedXP) error
}

// Resolution is the outcome of resolving one voter's XP level.
type Resolution struct {
	XP       *big.Float
	Power    int64
	Verified bool
	Fallback bool
	Email    string
}

// Resolver maps a voter identity to an XP level and the derived voting power.
type Resolver struct {
	Directory MemberDirectory
	Fallback  FallbackPolicy
	Cache     XPCache
	Logger    *zap.Logger
}

// NewResolver builds a resolver with the default random fallback policy.
func NewResolver(dir MemberDirectory, cache XPCache, logger *zap.Logger) *Resolver {
	return &Resolver{
		Directory: dir,
		Fallback:  NewRandomFallback(),
		Cache:     cache,
		Logger:    logger,
	}
}

// Resolve determines the voter's XP level: cached value first, then the
// external directory, then the fallback policy. Lookup failures are never
// fatal; they downgrade to the fallback and are logged.
func (r *Resolver) Resolve(ctx context.Context, pollID string, voter ReactingUser) Resolution {
	if r.Cache != nil {
		cached, err := r.Cache.Lookup(ctx, pollID, voter.ID)
		if err != nil {
			r.Logger.Warn("XP cache lookup failed",
				zap.String("poll_id", pollID),
				zap.String("voter_id", voter.ID),
				zap.Error(err))
		} else if cached != nil {
			return Resolution{
				XP:       cached.XP,
				Power:    PowerForXP(cached.XP),
				Verified: cached.Verified,
				Fallback: cached.Fallback,
				Email:    cached.Email,
			}
		}
	}

	res := r.resolveFresh(ctx, voter)

	if r.Cache != nil {
		entry := &CachedXP{XP: res.XP, Verified: res.Verified, Fallback: res.Fallback, Email: res.Email}
		if err := r.Cache.Store(ctx, pollID, voter.ID, entry); err != nil {
			r.Logger.Warn("XP cache store failed",
				zap.String("poll_id", pollID),
				zap.String("voter_id", voter.ID),
				zap.Error(err))
		}
	}

	return res
}

func (r *Resolver) resolveFresh(ctx context.Context, voter ReactingUser) Resolution {
	entry, err := r.Directory.LookupVoter(ctx, voter.Username)
	if err != nil {
		r.Logger.Warn("Membership lookup failed, using fallback XP",
			zap.String("username", voter.Username),
			zap.Error(err))
		entry = nil
	}

	if entry != nil && entry.XP != nil {
		return Resolution{
			XP:       entry.XP,
			Power:    PowerForXP(entry.XP),
			Verified: true,
			Email:    entry.Email,
		}
	}

	level := r.Fallback.FallbackXP(voter)
	r.Logger.Debug("Voter not resolvable, fallback XP assigned",
		zap.String("username", voter.Username),
		zap.String("xp", level.Text('g', 6)))

	return Resolution{
		XP:       level,
		Power:    PowerForXP(level),
		Fallback: true,
	}
}

// internal/matching/agent.go
// Autonomous matching agent and the manual "find matches now" scan

package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/travelers"
)

// ProfileSource is the read side of the traveler profiles
type ProfileSource interface {
	GetProfile(ctx context.Context, userID int64) (*travelers.Profile, error)
	ListActive(ctx context.Context) ([]*travelers.Profile, error)
}

type Agent struct {
	profiles ProfileSource
	proposer *Proposer
	agent    Strategy
	manual   Strategy
	logger   *zap.Logger
}

// NewAgent creates the agent. generator may be nil, in which case match
// reasons use the plain template.
func NewAgent(profiles ProfileSource, proposer *Proposer, generator ReasonGenerator, logger *zap.Logger) *Agent {
	return &Agent{
		profiles: profiles,
		proposer: proposer,
		agent:    AgentStrategy{Generator: generator},
		manual:   ManualScanStrategy{},
		logger:   logger.With(zap.String("component", "agent")),
	}
}

// SweepUser proposes matches between the user and every complete active
// traveler within the user's notification radius
func (a *Agent) SweepUser(ctx context.Context, userID int64) ([]*Match, error) {
	profile, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive || !profile.AutoMatch {
		return []*Match{}, nil
	}

	active, err := a.profiles.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active profiles: %w", err)
	}

	return a.sweep(ctx, profile, active)
}

// sweep runs the agent for one profile against a snapshot of the active
// profiles
func (a *Agent) sweep(ctx context.Context, profile *travelers.Profile, active []*travelers.Profile) ([]*Match, error) {
	if err := profile.Complete(); err != nil {
		return nil, err
	}

	candidates := make([]*travelers.Profile, 0, len(active))
	for _, c := range travelers.FilterNearby(profile, active, profile.EffectiveRadius()) {
		candidates = append(candidates, c.Profile)
	}

	return a.proposeAll(ctx, profile, candidates, a.agent, true)
}

// ScanNow runs the manual scan against every other active traveler
func (a *Agent) ScanNow(ctx context.Context, userID int64) ([]*Match, error) {
	profile, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := profile.Complete(); err != nil {
		return nil, err
	}

	active, err := a.profiles.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active profiles: %w", err)
	}

	candidates := make([]*travelers.Profile, 0, len(active))
	for _, c := range active {
		if c.UserID != userID {
			candidates = append(candidates, c)
		}
	}

	return a.proposeAll(ctx, profile, candidates, a.manual, false)
}

// proposeAll skips incomplete candidates and keeps going after a failed
// proposal, returning the last error along with what was created
func (a *Agent) proposeAll(ctx context.Context, initiator *travelers.Profile, candidates []*travelers.Profile, strategy Strategy, createdByAgent bool) ([]*Match, error) {
	created := []*Match{}
	var lastErr error

	for _, candidate := range candidates {
		if candidate.Complete() != nil {
			continue
		}

		match, err := a.proposer.Propose(ctx, initiator, candidate, strategy, createdByAgent)
		if err != nil {
			a.logger.Warn("proposal failed",
				zap.Int64("user_id", initiator.UserID),
				zap.Int64("candidate_id", candidate.UserID),
				zap.Error(err))
			lastErr = err
			continue
		}
		if match != nil {
			created = append(created, match)
		}
	}

	return created, lastErr
}

// SweepAll runs the agent for every active traveler with auto-match on.
// A failing user is logged and counted without stopping the sweep. It
// returns the number of matches created.
func (a *Agent) SweepAll(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	active, err := a.profiles.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active profiles: %w", err)
	}

	total, failed := 0, 0
	for _, profile := range active {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if !profile.AutoMatch {
			continue
		}

		matches, err := a.sweep(ctx, profile, active)
		total += len(matches)

		switch {
		case err == nil:
		case errors.Is(err, travelers.ErrIncompleteProfile):
			a.logger.Debug("skipping incomplete profile", zap.Int64("user_id", profile.UserID))
		default:
			failed++
			sweepFailures.Inc()
			a.logger.Error("agent sweep failed for user", zap.Int64("user_id", profile.UserID), zap.Error(err))
		}
	}

	a.logger.Info("agent sweep complete",
		zap.Int("profiles", len(active)),
		zap.Int("matches_created", total),
		zap.Int("failures", failed),
		zap.Duration("duration", time.Since(start)))

	return total, nil
}

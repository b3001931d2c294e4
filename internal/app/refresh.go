package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sensecoach/coach/internal/sensecoach"
	"github.com/sensecoach/coach/internal/state"
)

// Refresher reloads events, children and membership into the store. It runs
// only when the user asks for it or after a mutation; there is no background
// polling.
type Refresher struct {
	Client sensecoach.DataClient
	Store  *state.Store
	UserID string
	Logger *slog.Logger
}

// Refresh fetches events and children concurrently and publishes them to the
// store. Membership is best-effort: a failure is logged and the previous plan
// stays visible.
func (r *Refresher) Refresh(ctx context.Context, futureOnly bool) error {
	if r == nil || r.Client == nil || r.Store == nil {
		return fmt.Errorf("refresher is not configured")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var (
		events     []sensecoach.Event
		children   []string
		membership *sensecoach.Membership
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = r.Client.GetEvents(gctx, futureOnly)
		if err != nil {
			return fmt.Errorf("load events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		children, err = r.Client.GetChildren(gctx)
		if err != nil {
			return fmt.Errorf("load children: %w", err)
		}
		return nil
	})
	if r.UserID != "" {
		g.Go(func() error {
			ms, err := r.Client.GetMembership(gctx, r.UserID)
			if err != nil {
				logger.Warn("membership refresh failed", "user_id", r.UserID, "error", err)
				return nil
			}
			membership = ms
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("refresh failed", "future_only", futureOnly, "error", err)
		r.Store.Update(nil, nil, nil, err)
		return err
	}

	r.Store.Update(events, children, membership, nil)
	logger.Debug("refreshed", "events", len(events), "children", len(children), "future_only", futureOnly)
	return nil
}

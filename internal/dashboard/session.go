package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"verdant/internal/types"
)

// Fetcher requests a hazard description. HTTPFetcher is the production
// implementation.
type Fetcher interface {
	Fetch(ctx context.Context, req types.HazardInfoRequest) (string, error)
}

// Session is one dashboard page view: the record it was rendered from and the
// learn-more state of each hazard.
type Session struct {
	ID     string
	Record *types.CountyRiskRecord
	View   View
	Theme  Theme

	fetcher      Fetcher
	fetchTimeout time.Duration
	logger       *slog.Logger

	mu    sync.Mutex
	state State
}

// NewSession builds the view for rec. fetchTimeout bounds each background
// fetch; zero means no bound.
func NewSession(id string, rec *types.CountyRiskRecord, theme Theme, f Fetcher, fetchTimeout time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:           id,
		Record:       rec,
		View:         BuildView(rec),
		Theme:        theme,
		fetcher:      f,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "dashboard", "view_id", id),
		state:        State{},
	}
}

// State returns the current snapshot. Callers must not modify it.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	s.mu.Unlock()
}

// LearnMore moves hazard to Loading before returning and starts exactly one
// fetch in the background. The returned channel closes when that fetch has
// been applied.
//
// A hazard that already resolved keeps its text and no fetch is made. A
// hazard that is loading is restarted: both fetches run and the last one to
// finish decides the final state.
//
// The fetch is detached from ctx's cancellation so it outlives the HTTP
// request that triggered it; ctx values (request ID) are kept.
func (s *Session) LearnMore(ctx context.Context, hazard string) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	if cur := s.state.Get(hazard); cur.Status == Resolved || cur.Status == Failed {
		s.mu.Unlock()
		close(done)
		return done
	}
	s.state = Reduce(s.state, FetchStarted{Hazard: hazard})
	s.mu.Unlock()

	req := types.HazardInfoRequest{
		CountyName: s.View.CountyName,
		StateAbbr:  s.View.StateAbbr,
		Hazard:     hazard,
	}

	fetchCtx := types.WithViewID(context.WithoutCancel(ctx), s.ID)
	go func() {
		defer close(done)

		ctx, cancel := fetchCtx, context.CancelFunc(func() {})
		if s.fetchTimeout > 0 {
			ctx, cancel = context.WithTimeout(fetchCtx, s.fetchTimeout)
		}
		defer cancel()

		text, err := s.fetcher.Fetch(ctx, req)
		if err != nil {
			s.logger.Warn("hazard info fetch failed", "hazard", hazard, "error", err)
			s.dispatch(FetchFailed{Hazard: hazard, Err: err})
			return
		}
		s.dispatch(FetchSucceeded{Hazard: hazard, Text: text})
	}()

	return done
}

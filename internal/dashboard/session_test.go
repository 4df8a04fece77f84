package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/internal/types"
)

// gatedFetcher blocks each call until the test releases it.
type gatedFetcher struct {
	mu    sync.Mutex
	calls []types.HazardInfoRequest
	gates []chan fetchResult
	ready chan struct{}
}

type fetchResult struct {
	text string
	err  error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{ready: make(chan struct{}, 16)}
}

func (f *gatedFetcher) Fetch(ctx context.Context, req types.HazardInfoRequest) (string, error) {
	gate := make(chan fetchResult, 1)
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.gates = append(f.gates, gate)
	f.mu.Unlock()
	f.ready <- struct{}{}

	select {
	case r := <-gate:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *gatedFetcher) release(i int, text string, err error) {
	f.mu.Lock()
	gate := f.gates[i]
	f.mu.Unlock()
	gate <- fetchResult{text: text, err: err}
}

func (f *gatedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not complete")
	}
}

func newTestSession(f Fetcher) *Session {
	return NewSession("view-1", sampleRecord(), LightTheme, f, 0, nil)
}

func TestLearnMore_LoadingThenResolved(t *testing.T) {
	f := newGatedFetcher()
	s := newTestSession(f)

	done := s.LearnMore(context.Background(), "Flood")

	// Loading is visible before the fetch resolves.
	got := s.State().Get("Flood")
	assert.True(t, got.IsLoading())
	assert.False(t, got.ShowButton())

	<-f.ready
	f.release(0, "Example.", nil)
	waitDone(t, done)

	got = s.State().Get("Flood")
	assert.Equal(t, HazardInfoResult{Status: Resolved, Text: "Example."}, got)
	assert.False(t, got.ShowButton())

	require.Equal(t, 1, f.callCount())
	assert.Equal(t, types.HazardInfoRequest{CountyName: "Harris", StateAbbr: "TX", Hazard: "Flood"}, f.calls[0])
}

func TestLearnMore_FailureText(t *testing.T) {
	f := newGatedFetcher()
	s := newTestSession(f)

	done := s.LearnMore(context.Background(), "Hail")
	<-f.ready
	f.release(0, "", errors.New("hazard info returned status 500"))
	waitDone(t, done)

	assert.Equal(t, FailureText, s.State().Get("Hail").DisplayText())
}

func TestLearnMore_RapidDoubleClickLastResolvingWins(t *testing.T) {
	f := newGatedFetcher()
	s := newTestSession(f)

	first := s.LearnMore(context.Background(), "Flood")
	second := s.LearnMore(context.Background(), "Flood")
	<-f.ready
	<-f.ready
	require.Equal(t, 2, f.callCount())
	assert.True(t, s.State().Get("Flood").IsLoading())

	// The second request finishes first; the first request finishes last
	// and its outcome is final.
	f.release(1, "second answer", nil)
	waitDone(t, second)
	assert.Equal(t, "second answer", s.State().Get("Flood").DisplayText())

	f.release(0, "first answer", nil)
	waitDone(t, first)

	st := s.State()
	assert.Len(t, st, 1)
	assert.Equal(t, HazardInfoResult{Status: Resolved, Text: "first answer"}, st.Get("Flood"))
}

func TestLearnMore_ResolvedIsNotRefetched(t *testing.T) {
	f := newGatedFetcher()
	s := newTestSession(f)

	done := s.LearnMore(context.Background(), "Drought")
	<-f.ready
	f.release(0, "", nil)
	waitDone(t, done)
	assert.Equal(t, UnavailableText, s.State().Get("Drought").DisplayText())

	waitDone(t, s.LearnMore(context.Background(), "Drought"))
	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, UnavailableText, s.State().Get("Drought").DisplayText())
}

func TestLearnMore_OutlivesCancelledRequest(t *testing.T) {
	f := newGatedFetcher()
	s := newTestSession(f)

	ctx, cancel := context.WithCancel(types.WithRequestID(context.Background(), "req-9"))
	done := s.LearnMore(ctx, "Tornado")
	cancel()

	<-f.ready
	f.release(0, "Shelter in a basement.", nil)
	waitDone(t, done)
	assert.Equal(t, "Shelter in a basement.", s.State().Get("Tornado").DisplayText())
}

func TestLearnMore_FetchTimeout(t *testing.T) {
	f := newGatedFetcher()
	s := NewSession("view-2", sampleRecord(), DarkTheme, f, 20*time.Millisecond, nil)

	done := s.LearnMore(context.Background(), "Lightning")
	<-f.ready
	waitDone(t, done)

	assert.Equal(t, Failed, s.State().Get("Lightning").Status)
}

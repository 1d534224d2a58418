package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestJoinIssuesUsableToken(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))
	ctx := context.Background()

	session, err := reg.Join(ctx, "Alice", 123, "j1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, clock.Now().Add(DefaultTTL), session.ExpiresAt)

	got, err := reg.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, int64(123), got.PlaceID)
	assert.Equal(t, "j1", got.JobID)
}

func TestJoinRejectsMissingFields(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name     string
		username string
		placeID  int64
		jobID    string
	}{
		{name: "missing username", placeID: 1, jobID: "j"},
		{name: "zero place", username: "a", jobID: "j"},
		{name: "missing job", username: "a", placeID: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Join(context.Background(), tt.username, tt.placeID, tt.jobID)
			require.ErrorIs(t, err, ErrMissingFields)
		})
	}
	assert.Zero(t, reg.Len())
}

func TestJoinAcceptsWhitespaceUsername(t *testing.T) {
	reg := NewRegistry()

	session, err := reg.Join(context.Background(), "  ", 1, "j")
	require.NoError(t, err)
	assert.Equal(t, "  ", session.DisplayName)
}

func TestConcurrentJoinsNeverCollide(t *testing.T) {
	reg := NewRegistry()
	const joins = 200

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens = make(map[string]struct{}, joins)
	)
	for i := 0; i < joins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := reg.Join(context.Background(), "Bob", 7, "job")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			tokens[session.Token] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, tokens, joins)
	assert.Equal(t, joins, reg.Len())
}

func TestAuthenticateUnknownToken(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Authenticate(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = reg.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateChecksExpiry(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now), WithTTL(time.Minute))
	ctx := context.Background()

	session, err := reg.Join(ctx, "Alice", 1, "j1")
	require.NoError(t, err)

	clock.Advance(time.Minute - time.Second)
	_, err = reg.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = reg.Authenticate(ctx, session.Token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))
	ctx := context.Background()

	old, err := reg.Join(ctx, "old", 1, "j")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	fresh, err := reg.Join(ctx, "fresh", 1, "j")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Authenticate(ctx, old.Token)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = reg.Authenticate(ctx, fresh.Token)
	require.NoError(t, err)
}

func TestRejoinDoesNotRevokeOldToken(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	first, err := reg.Join(ctx, "Alice", 1, "j")
	require.NoError(t, err)
	second, err := reg.Join(ctx, "Alice", 1, "j")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	_, err = reg.Authenticate(ctx, first.Token)
	require.NoError(t, err)
}

func TestSweeperPurgesInBackground(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now), WithTTL(time.Minute))

	_, err := reg.Join(context.Background(), "Alice", 1, "j")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	sweeper := NewSweeper(reg, 5*time.Millisecond, zerolog.Nop())
	stop := sweeper.Start(context.Background())
	defer stop()

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSweeperStopsOnCancel(t *testing.T) {
	sweeper := NewSweeper(NewRegistry(), 0, zerolog.Nop())
	assert.Equal(t, DefaultSweepInterval, sweeper.interval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

package breaker

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/logger"
)

var errBoom = errors.New("boom")

func newTestRegistry(opts ...Option) *Registry {
	cfg := Config{
		MaxRequests:         1,
		Timeout:             time.Hour,
		ConsecutiveFailures: 2,
	}
	return NewRegistry(cfg, logger.New("test", "error"), opts...)
}

func TestRun_SuccessSkipsFallback(t *testing.T) {
	b := newTestRegistry().Get("svc")

	got, err := Run(b, func() (int, error) { return 42, nil }, func(err error) (int, error) {
		t.Fatal("fallback must not run")
		return 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, StateClosed, b.State())
}

func TestRun_FailureGoesToFallbackWithCause(t *testing.T) {
	b := newTestRegistry().Get("svc")

	var seen error
	got, err := Run(b, func() (string, error) { return "", errBoom }, func(err error) (string, error) {
		seen = err
		return "degraded", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "degraded", got)
	assert.ErrorIs(t, seen, errBoom)
	assert.Equal(t, uint32(1), b.Counts().ConsecutiveFailures)
}

func TestRun_NilFallbackReturnsError(t *testing.T) {
	b := newTestRegistry().Get("svc")

	_, err := Run[int](b, func() (int, error) { return 0, errBoom }, nil)

	assert.ErrorIs(t, err, errBoom)
}

func TestRun_OpenBreakerShortCircuits(t *testing.T) {
	b := newTestRegistry().Get("svc")
	for i := 0; i < 2; i++ {
		_, _ = Run[int](b, func() (int, error) { return 0, errBoom }, nil)
	}
	require.Equal(t, StateOpen, b.State())

	calls := 0
	var seen error
	_, err := Run(b, func() (int, error) {
		calls++
		return 1, nil
	}, func(err error) (int, error) {
		seen = err
		return -1, err
	})

	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, seen, ErrCircuitOpen)
}

func TestRun_HalfOpenRecovers(t *testing.T) {
	reg := NewRegistry(Config{MaxRequests: 1, Timeout: 20 * time.Millisecond, ConsecutiveFailures: 1}, logger.New("test", "error"))
	b := reg.Get("svc")

	_, _ = Run[int](b, func() (int, error) { return 0, errBoom }, nil)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	_, err := Run(b, func() (int, error) { return 1, nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestRun_HalfOpenTrialFailureReopens(t *testing.T) {
	reg := NewRegistry(Config{MaxRequests: 1, Timeout: 20 * time.Millisecond, ConsecutiveFailures: 1}, logger.New("test", "error"))
	b := reg.Get("svc")

	_, _ = Run[int](b, func() (int, error) { return 0, errBoom }, nil)
	time.Sleep(40 * time.Millisecond)
	_, _ = Run[int](b, func() (int, error) { return 0, errBoom }, nil)

	assert.Equal(t, StateOpen, b.State())
}

func TestRegistry_GetIsIdempotentAndIndependent(t *testing.T) {
	reg := newTestRegistry()

	a := reg.Get("userService")
	assert.Same(t, a, reg.Get("userService"))

	for i := 0; i < 2; i++ {
		_, _ = Run[int](a, func() (int, error) { return 0, errBoom }, nil)
	}

	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, StateClosed, reg.Get("emailService").State())
}

func TestRegistry_ClientErrorsDoNotTrip(t *testing.T) {
	b := newTestRegistry().Get("svc")

	for i := 0; i < 5; i++ {
		_, err := Run[int](b, func() (int, error) {
			return 0, apperrors.NewValidation("name is required", nil)
		}, nil)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	}

	assert.Equal(t, StateClosed, b.State())
}

func TestRegistry_OverridesAndListener(t *testing.T) {
	var transitions []string
	var mu sync.Mutex
	reg := newTestRegistry(
		WithOverrides(map[string]Config{"fragile": {ConsecutiveFailures: 1}}),
		WithListener(func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, name+":"+string(from)+"->"+string(to))
		}),
	)

	_, _ = Run[int](reg.Get("fragile"), func() (int, error) { return 0, errBoom }, nil)
	_, _ = Run[int](reg.Get("sturdy"), func() (int, error) { return 0, errBoom }, nil)

	assert.Equal(t, StateOpen, reg.Get("fragile").State())
	assert.Equal(t, StateClosed, reg.Get("sturdy").State())
	assert.Equal(t, []string{"fragile:closed->open"}, transitions)

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "fragile", snap[0].Name)
	assert.Equal(t, StateOpen, snap[0].State)
}

func TestRun_ConcurrentCallsAreCounted(t *testing.T) {
	reg := NewRegistry(Config{MaxRequests: 1, Timeout: time.Hour}, logger.New("test", "error"))
	b := reg.Get("svc")

	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Run(b, func() (int, error) {
				atomic.AddInt64(&ran, 1)
				return 1, nil
			}, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), atomic.LoadInt64(&ran))
	assert.Equal(t, uint32(50), b.Counts().TotalSuccesses)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breakers.yaml")
	content := `
defaults:
  timeout: 10s
breakers:
  emailService:
    consecutive_failures: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)

	defaults, opt := f.Apply(DefaultConfig())
	assert.Equal(t, 10*time.Second, defaults.Timeout)
	assert.Equal(t, DefaultConfig().ConsecutiveFailures, defaults.ConsecutiveFailures)

	reg := NewRegistry(defaults, logger.New("test", "error"), opt)
	cfg := reg.configFor("emailService")
	assert.Equal(t, uint32(3), cfg.ConsecutiveFailures)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoadFile_EmptyPath(t *testing.T) {
	f, err := LoadFile("")
	require.NoError(t, err)
	assert.Empty(t, f.Breakers)
}

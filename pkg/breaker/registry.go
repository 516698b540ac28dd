package breaker

import (
	"sort"
	"sync"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/logger"
)

// Option configures a Registry.
type Option func(*Registry)

// WithOverrides sets per-name policies. Zero fields inherit the registry defaults.
func WithOverrides(overrides map[string]Config) Option {
	return func(r *Registry) {
		for name, cfg := range overrides {
			r.overrides[name] = cfg
		}
	}
}

// WithSuccessClassifier replaces the rule deciding which errors count as failures.
func WithSuccessClassifier(fn func(error) bool) Option {
	return func(r *Registry) {
		r.isSuccessful = fn
	}
}

// Listener is notified on every state transition.
type Listener func(name string, from, to State)

// WithListener registers a state change listener.
func WithListener(fn Listener) Option {
	return func(r *Registry) {
		r.listeners = append(r.listeners, fn)
	}
}

// Registry creates breakers on first use and hands out the same instance for
// a name for the rest of the process lifetime.
type Registry struct {
	mu           sync.RWMutex
	breakers     map[string]*Breaker
	defaults     Config
	overrides    map[string]Config
	isSuccessful func(error) bool
	listeners    []Listener
	log          *logger.Logger
}

// NewRegistry creates a registry. Unless overridden, expected business errors
// (validation, not found, conflict) do not count against a breaker.
func NewRegistry(defaults Config, log *logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		breakers:     make(map[string]*Breaker),
		defaults:     defaults,
		overrides:    make(map[string]Config),
		isSuccessful: defaultSuccess,
		log:          log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultSuccess(err error) bool {
	return err == nil || apperrors.IsClientError(err)
}

// Get returns the breaker registered under name, creating it if needed.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok = r.breakers[name]; ok {
		return b
	}

	cfg := r.configFor(name)
	b = &Breaker{
		name: name,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
					return true
				}
				if cfg.MinRequests == 0 || counts.Requests < cfg.MinRequests {
					return false
				}
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return cfg.FailureRatio > 0 && ratio >= cfg.FailureRatio
			},
			OnStateChange: r.onStateChange,
			IsSuccessful:  r.isSuccessful,
		}),
	}
	r.breakers[name] = b

	r.log.Info("circuit breaker created",
		zap.String("breaker", name),
		zap.Uint32("consecutive_failures", cfg.ConsecutiveFailures),
		zap.Duration("timeout", cfg.Timeout),
	)
	return b
}

func (r *Registry) configFor(name string) Config {
	if o, ok := r.overrides[name]; ok {
		return o.merge(r.defaults)
	}
	return r.defaults
}

func (r *Registry) onStateChange(name string, from, to gobreaker.State) {
	r.log.Warn("circuit breaker state changed",
		zap.String("breaker", name),
		zap.String("from", string(stateOf(from))),
		zap.String("to", string(stateOf(to))),
	)
	for _, l := range r.listeners {
		l(name, stateOf(from), stateOf(to))
	}
}

// Status describes one breaker for health reporting.
type Status struct {
	Name   string `json:"name"`
	State  State  `json:"state"`
	Counts Counts `json:"counts"`
}

// Snapshot returns the status of every breaker created so far, sorted by name.
func (r *Registry) Snapshot() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.breakers))
	for name, b := range r.breakers {
		out = append(out, Status{Name: name, State: b.State(), Counts: b.Counts()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without touching the network while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ServerError is an upstream 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// ClientConfig holds configuration for a provider HTTP client.
type ClientConfig struct {
	// Name identifies the provider in the breaker, registry and logs.
	Name string

	// Timeout bounds each individual HTTP attempt. Default: 10 seconds.
	Timeout time.Duration

	// MaxRetries is the number of retries after a 5xx or network failure.
	// Zero makes a single attempt.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the exponential retry backoff.
	// Defaults: 100ms and 5 seconds.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, has the client registered under Name.
	Registry *Registry

	// Logger receives retry and breaker transitions. Nil disables them.
	Logger *zerolog.Logger
}

// DefaultClientConfig returns defaults for background callers (cache warming)
// that can afford a few retries.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cb,
	}
}

// LookupClientConfig returns defaults for interactive lookups: one attempt per
// search, guarded by the circuit breaker.
func LookupClientConfig(name string) ClientConfig {
	cfg := DefaultClientConfig(name)
	cfg.MaxRetries = 0
	return cfg
}

// Client is an HTTP client with circuit breaker protection and optional retries.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	config  ClientConfig
	logger  zerolog.Logger
}

// NewClient creates a provider client, registering it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("provider", cfg.Name).Logger()
	}

	cb := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}
	if cb.OnStateChange == nil && cfg.Logger != nil {
		cb.OnStateChange = LogStateChanges(*cfg.Logger)
	}

	client := &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: newCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type param, not response
		config:  cfg,
		logger:  logger,
	}

	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, client)
	}

	return client
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes req through the circuit breaker. 5xx responses and network
// errors count as failures and are retried up to MaxRetries times with
// exponential backoff. A 5xx that exhausts its retries is returned as a
// response so callers can report the status. The caller closes the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by WithMaxRetries
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var last *http.Response
	keep := func(resp *http.Response) {
		if last != nil {
			last.Body.Close()
		}
		last = resp
	}

	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed by keep or the caller
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if resp != nil {
			keep(resp)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("backoff", wait).Msg("retrying provider request")
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err == nil {
		return last, nil
	}

	var serverErr *ServerError
	if last != nil && errors.As(err, &serverErr) {
		return last, nil
	}
	keep(nil)
	return nil, err
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

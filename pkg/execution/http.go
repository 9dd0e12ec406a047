package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/operion-studio/pkg/models"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
	defaultInterval    = 60 * time.Second

	maxErrorBody = 4 << 10
)

// HTTPConfig configures an HTTPExecutor. Zero values select the defaults.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
	Client      *http.Client
}

// HTTPExecutor posts test runs to <BaseURL>/executions behind a circuit breaker.
type HTTPExecutor struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*models.RunResult]
	logger   *slog.Logger
}

var _ Executor = (*HTTPExecutor)(nil)

func NewHTTPExecutor(cfg HTTPConfig, logger *slog.Logger) (*HTTPExecutor, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid execution endpoint %q", cfg.BaseURL)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultMaxFailures
	}

	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}

	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}

	logger = logger.With("module", "http_executor")
	maxFailures := cfg.MaxFailures

	breaker := gobreaker.NewCircuitBreaker[*models.RunResult](gobreaker.Settings{
		Name:        "execution:" + base.Host,
		MaxRequests: 1,
		Interval:    defaultInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			var requestErr *RequestError
			if errors.As(err, &requestErr) {
				return !requestErr.Retryable()
			}

			return err == nil
		},
	})

	return &HTTPExecutor{
		endpoint: strings.TrimSuffix(base.String(), "/") + "/executions",
		client:   cfg.Client,
		breaker:  breaker,
		logger:   logger,
	}, nil
}

func (e *HTTPExecutor) Execute(ctx context.Context, request Request) (*models.RunResult, error) {
	result, err := e.breaker.Execute(func() (*models.RunResult, error) {
		return e.post(ctx, request)
	})
	if err != nil {
		if IsCircuitOpen(err) {
			return nil, &RequestError{Op: "execute", Err: err}
		}

		return nil, err
	}

	return result, nil
}

// State returns the circuit breaker state for health reporting.
func (e *HTTPExecutor) State() gobreaker.State {
	return e.breaker.State()
}

func (e *HTTPExecutor) post(ctx context.Context, request Request) (*models.RunResult, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Op: "execute", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &RequestError{Op: "execute", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, &RequestError{
			Op:         "execute",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, strings.TrimSpace(string(snippet))),
		}
	}

	var result models.RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &RequestError{Op: "execute", StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode run result: %w", err)}
	}

	e.logger.Debug("Execution endpoint answered", "run_id", result.RunID, "outcome", result.Outcome)

	return &result, nil
}

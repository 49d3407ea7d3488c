package simplybook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// Retry defaults.
const (
	DefaultMaxAttempts  = 5
	DefaultBaseDelay    = time.Second
	DefaultMaxJitter    = 200 * time.Millisecond
	DefaultFetchTimeout = 15 * time.Second
)

// RequestBuilder creates the request for one attempt. It is called again for
// every attempt so request bodies are never reused.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Fetcher issues token-authenticated requests and retries them according to
// the upstream's answer: a stale token is refreshed once, rate limits and
// server errors back off exponentially with jitter, and anything else fails
// immediately.
type Fetcher struct {
	http        *http.Client
	tokens      driven.TokenProvider
	company     string
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration
	timeout     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func(limit time.Duration) time.Duration
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxAttempts caps the total number of HTTP attempts per fetch.
func WithMaxAttempts(n int) FetcherOption {
	return func(f *Fetcher) { f.maxAttempts = n }
}

// WithBaseDelay sets the delay before the first retry. Each later retry
// doubles it.
func WithBaseDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.baseDelay = d }
}

// WithMaxJitter sets the upper bound of the random delay added to each backoff.
func WithMaxJitter(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.maxJitter = d }
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// WithSleeper replaces the backoff wait. Tests use it to record delays
// without waiting.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithJitter replaces the jitter source.
func WithJitter(jitter func(limit time.Duration) time.Duration) FetcherOption {
	return func(f *Fetcher) { f.jitter = jitter }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// NewFetcher creates a Fetcher that authenticates with tokens and sends
// company in the X-Company-Login header.
func NewFetcher(httpClient *http.Client, tokens driven.TokenProvider, company string, opts ...FetcherOption) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	f := &Fetcher{
		http:        httpClient,
		tokens:      tokens,
		company:     company,
		userAgent:   defaultUserAgent,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxJitter:   DefaultMaxJitter,
		timeout:     DefaultFetchTimeout,
		sleep:       sleepContext,
		jitter:      randomJitter,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = 1
	}
	return f
}

// Get fetches rawURL with params as its query string.
func (f *Fetcher) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &model.UpstreamError{Err: fmt.Errorf("parsing request URL: %w", err)}
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	target := u.String()

	return f.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// fetchState is a step of the retry loop.
type fetchState int

const (
	stateAttempting fetchState = iota
	stateBackoff
	stateSuccess
	stateExhausted
	stateFailed
)

func (s fetchState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateBackoff:
		return "backoff"
	case stateSuccess:
		return "success"
	case stateExhausted:
		return "exhausted"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("fetchState(%d)", int(s))
	}
}

// fetchRun is the mutable state of a single Do call.
type fetchRun struct {
	attempt   int
	status    int
	body      []byte
	err       error
	refreshed bool // a 401 or 403 already triggered a refresh
}

// Do sends the request produced by build until it succeeds, fails for good,
// or runs out of attempts. The returned body is valid JSON.
func (f *Fetcher) Do(ctx context.Context, build RequestBuilder) ([]byte, error) {
	run := &fetchRun{}
	state := stateAttempting

	for {
		switch state {
		case stateAttempting:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			run.attempt++
			state = f.attempt(ctx, build, run)

		case stateBackoff:
			if run.attempt >= f.maxAttempts {
				state = stateExhausted
				continue
			}
			delay := f.backoff(run.attempt)
			f.logger.Warn("upstream request throttled, backing off",
				"status", run.status,
				"attempt", run.attempt,
				"max_attempts", f.maxAttempts,
				"delay", delay,
			)
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
			state = stateAttempting

		case stateSuccess:
			if !json.Valid(run.body) {
				return nil, &model.UpstreamError{
					Status: run.status,
					Body:   model.Excerpt(run.body),
					Err:    errors.New("response is not valid JSON"),
				}
			}
			return run.body, nil

		case stateExhausted:
			return nil, &model.RetryExhaustedError{
				Attempts: run.attempt,
				Status:   run.status,
				Body:     model.Excerpt(run.body),
			}

		case stateFailed:
			return nil, run.err
		}
	}
}

// attempt performs one HTTP round trip and returns the next state.
func (f *Fetcher) attempt(ctx context.Context, build RequestBuilder, run *fetchRun) fetchState {
	token, err := f.tokens.Token(ctx)
	if err != nil {
		run.err = err
		return stateFailed
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := build(attemptCtx)
	if err != nil {
		run.err = &model.UpstreamError{Err: fmt.Errorf("creating request: %w", err)}
		return stateFailed
	}
	req.Header.Set(headerCompany, f.company)
	req.Header.Set(headerToken, token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			run.err = ctxErr
		} else {
			run.err = &model.UpstreamError{Err: err}
		}
		return stateFailed
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		run.err = &model.UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
		return stateFailed
	}

	run.status = resp.StatusCode
	run.body = body

	return f.classify(token, run)
}

// classify maps the status of the last attempt onto the next state.
func (f *Fetcher) classify(token string, run *fetchRun) fetchState {
	switch status := run.status; {
	case status >= 200 && status < 300:
		return stateSuccess

	case status == http.StatusUnauthorized:
		if run.refreshed {
			run.err = &model.UpstreamError{Status: status, Body: model.Excerpt(run.body)}
			return stateFailed
		}
		run.refreshed = true
		f.tokens.Invalidate(token)
		f.logger.Info("upstream rejected token, refreshing", "attempt", run.attempt)
		if run.attempt >= f.maxAttempts {
			return stateExhausted
		}
		return stateAttempting

	case status == http.StatusForbidden:
		// 403 may mean a stale token or a rate limit. It shares the refresh
		// budget with 401 and backs off every time.
		if !run.refreshed {
			run.refreshed = true
			f.tokens.Invalidate(token)
			f.logger.Info("upstream returned 403, refreshing token", "attempt", run.attempt)
		}
		return stateBackoff

	case status == http.StatusTooManyRequests || status >= 500:
		return stateBackoff

	default:
		run.err = &model.UpstreamError{Status: status, Body: model.Excerpt(run.body)}
		return stateFailed
	}
}

// backoff returns the wait before the attempt following attempt:
// baseDelay * 2^(attempt-1) plus jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	shift := min(max(attempt-1, 0), 16)
	return f.baseDelay<<shift + f.jitter(f.maxJitter)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}

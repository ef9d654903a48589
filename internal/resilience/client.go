package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client wraps an http.Client with per-attempt timeouts, retries with
// exponential backoff and a circuit breaker. It satisfies the Do(*http.Request)
// shape expected by SDK clients such as go-openai.
type Client struct {
	HTTP        *http.Client
	Breaker     *Breaker
	Target      string
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Timeout     time.Duration
}

// NewClient returns a client over an otelhttp-instrumented transport.
func NewClient(target string, breaker *Breaker, maxAttempts int, baseBackoff, timeout time.Duration) *Client {
	if breaker == nil {
		breaker = NewBreaker(5, 0.5, 30*time.Second)
	}
	breaker.WithTarget(target)
	return &Client{
		HTTP:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     breaker,
		Target:      target,
		MaxAttempts: maxAttempts,
		BaseBackoff: baseBackoff,
		Jitter:      0.2,
		Timeout:     timeout,
	}
}

// Do sends req, retrying transport errors, 429 and 5xx responses. The last
// retryable response is returned as-is so callers can read the upstream error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c == nil || c.HTTP == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	ctx := req.Context()
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Breaker != nil && !c.Breaker.Allow(ctx) {
			upstreamAttempts.WithLabelValues(c.target(), "rejected").Inc()
			if lastErr == nil {
				lastErr = ErrOpenCircuit
			}
			return nil, lastErr
		}
		resp, err := c.once(ctx, req, body)
		retryable := err != nil || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		c.report(ctx, err == nil && resp.StatusCode < 500)
		if !retryable {
			upstreamAttempts.WithLabelValues(c.target(), "ok").Inc()
			return resp, nil
		}
		upstreamAttempts.WithLabelValues(c.target(), "retryable").Inc()
		if attempt == attempts {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("resilience: upstream status %s", resp.Status)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		timer := time.NewTimer(Backoff(c.BaseBackoff, attempt, c.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	attempt := req.Clone(callCtx)
	if body != nil {
		attempt.Body = io.NopCloser(bytes.NewReader(body))
		attempt.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	resp, err := c.HTTP.Do(attempt)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) report(ctx context.Context, ok bool) {
	if c.Breaker != nil {
		c.Breaker.Report(ctx, ok)
	}
}

func (c *Client) target() string {
	if c.Target == "" {
		return "default"
	}
	return c.Target
}

// cancelOnClose keeps the attempt deadline alive until the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	src := req.Body
	if req.GetBody != nil {
		fresh, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		src = fresh
	}
	defer func() { _ = src.Close() }()
	return io.ReadAll(src)
}

package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// HTTPClient sends single-attempt calls to an upstream behind a breaker.
// Storefront calls are never retried: a failed order POST must not be
// replayed, and a stale suggestion is worthless.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
	Timeout time.Duration
	// Observe is called once per call with the response status (0 on transport errors).
	Observe func(ctx context.Context, req *http.Request, status int, elapsed time.Duration, err error)
}

// Do sends req. 5xx answers and transport errors count against the breaker
// but the 5xx response is still returned so callers can read its detail.
// Calls abandoned by the caller's context are not held against the upstream.
//
// The returned response is not bound to Timeout; callers must close its body.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
		return nil, ErrOpenCircuit
	}

	start := time.Now()
	resp, err := cl.send(req.WithContext(ctx))
	elapsed := time.Since(start)
	if cl.Observe != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		cl.Observe(ctx, req, status, elapsed, err)
	}

	if cl.Breaker != nil {
		switch {
		case err != nil && ctx.Err() != nil:
			cl.Breaker.Release()
		case err != nil:
			cl.Breaker.Report(ctx, false)
		default:
			cl.Breaker.Report(ctx, resp.StatusCode < http.StatusInternalServerError)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cl HTTPClient) send(req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		return cl.Client.Do(req)
	}
	callCtx, cancel := context.WithTimeout(req.Context(), timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

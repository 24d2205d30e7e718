// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package httpclient

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/failsafehttp"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

type Options struct {
	// RequestTimeout bounds a whole request including all retries; zero means unbounded
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffMin     time.Duration
	BackoffMax     time.Duration
}

// ResilientClient retries failed requests, server errors and throttled requests with exponential backoff.
type ResilientClient struct {
	httpClient *http.Client
	executor   failsafe.Executor[*http.Response]
}

const jitterFactor = .25

func DefaultOptions() Options {
	return Options{
		MaxRetries: 5,
		BackoffMin: time.Second,
		BackoffMax: time.Minute,
	}
}

func NewResilientClient(options Options) *ResilientClient {
	builder := retrypolicy.Builder[*http.Response]().
		HandleIf(isRetryable).
		WithBackoff(options.BackoffMin, options.BackoffMax).
		WithJitterFactor(jitterFactor).
		WithMaxRetries(options.MaxRetries).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			discard(e.LastResult())

			slog.Warn("HTTP request failed, retrying", "retry", e.Retries(), "elapsed", e.ElapsedTime(), "error", e.LastError())
		})

	if options.RequestTimeout > 0 {
		builder = builder.WithMaxDuration(options.RequestTimeout)
	}

	return &ResilientClient{
		httpClient: &http.Client{Timeout: options.RequestTimeout},
		executor:   failsafe.NewExecutor[*http.Response](builder.Build()),
	}
}

// Get performs a GET request. Non-2xx responses are returned as they are, after retries are exhausted.
func (c *ResilientClient) Get(ctx context.Context, url string) (*http.Response, error) {
	slog.Debug("Calling http GET", "url", url)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return failsafehttp.NewRequestWithExecutor(request, c.httpClient, c.executor.WithContext(ctx)).Do()
}

// Post performs a POST request, re-sending the body on every attempt.
func (c *ResilientClient) Post(ctx context.Context, url string, contentType string, body []byte) (*http.Response, error) {
	slog.Debug("Calling http POST", "url", url, "content-type", contentType)

	return c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		request.Header.Set("Content-Type", contentType)

		return c.httpClient.Do(request)
	})
}

func isRetryable(response *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= http.StatusInternalServerError
}

func discard(response *http.Response) {
	if response == nil || response.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()
}

/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apitest

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Response is a fully read HTTP response.
type Response struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	TraceID    string
	Duration   time.Duration
}

// Text returns the raw body.
func (r *Response) Text() string {
	return string(r.Body)
}

// Expect returns a *StatusError if the status is not in expected.
func (r *Response) Expect(expected StatusSet) error {
	if expected.Contains(r.StatusCode) {
		return nil
	}

	return &StatusError{
		Method:   r.Method,
		Path:     r.Path,
		Expected: expected,
		Status:   r.StatusCode,
		Body:     r.Text(),
		TraceID:  r.TraceID,
	}
}

type APIClient struct {
	baseURL   string
	timeout   time.Duration
	client    Doer
	config    *TestConfig
	endpoints *Endpoints
}

// Option modifies a client at construction time.
type Option func(*APIClient)

// WithDoer replaces the HTTP transport.
func WithDoer(doer Doer) Option {
	return func(c *APIClient) {
		c.client = doer
	}
}

// DefaultRequestTimeout applies when a configuration carries no timeout.
const DefaultRequestTimeout = 30 * time.Second

func NewAPIClient(config *TestConfig, options ...Option) *APIClient {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	c := &APIClient{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
		config:    config,
		endpoints: NewEndpoints(),
	}

	for _, o := range options {
		o(c)
	}

	return c
}

// Endpoints returns the endpoint path builder.
func (c *APIClient) Endpoints() *Endpoints {
	return c.endpoints
}

// Timeout returns the limit applied to every request.
func (c *APIClient) Timeout() time.Duration {
	return c.timeout
}

// BaseURL returns the URL all paths are relative to.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// logError logs a generic error with trace context.
func logError(ctx context.Context, method, path string, duration time.Duration, traceParent string, err error, message string) {
	log.FromContext(ctx).Error(err, message, "method", method, "path", path, "duration", duration, "traceparent", traceParent, "traceID", extractTraceID(traceParent))
}

// generateTraceID creates a new W3C trace ID.
// A fresh trace per request lets a failing call be found in the server logs.
func generateTraceID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)

	return hex.EncodeToString(bytes)
}

// generateSpanID creates a new W3C span ID.
func generateSpanID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)

	return hex.EncodeToString(bytes)
}

// createTraceParent creates a W3C traceparent header value.
func createTraceParent() string {
	return fmt.Sprintf("00-%s-%s-01", generateTraceID(), generateSpanID())
}

// extractTraceID extracts the trace ID from a traceparent header value.
func extractTraceID(traceParent string) string {
	parts := strings.Split(traceParent, "-")
	if len(parts) >= 2 {
		return parts[1]
	}

	return traceParent
}

// Do sends a single request and reads the whole response. A non-empty token is
// sent as a bearer credential, a nil body sends no content. Only transport
// failures are returned as errors; status checking is left to the caller.
func (c *APIClient) Do(ctx context.Context, method, path, token string, body any) (*Response, error) {
	logger := log.FromContext(ctx)

	// Applies whatever the transport, a custom Doer may have no timeout.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Add W3C Trace Context headers
	traceParent := createTraceParent()
	req.Header.Set("Traceparent", traceParent)
	req.Header.Set("Tracestate", "test-automation=taskflow-apitest")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		logError(ctx, method, path, duration, traceParent, err, "http request failed")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logError(ctx, method, path, duration, traceParent, err, "reading response body")
		return nil, fmt.Errorf("%w: %s %s: reading response body: %w", ErrTransport, method, path, err)
	}

	response := &Response{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       respBody,
		TraceID:    extractTraceID(traceParent),
		Duration:   duration,
	}

	if c.config.LogRequests {
		logger.Info("request", "method", method, "path", path, "status", resp.StatusCode, "duration", duration, "traceparent", traceParent)
	}

	if c.config.LogResponses && len(respBody) > 0 {
		logger.Info("response body", "method", method, "path", path, "body", response.Text())
	}

	return response, nil
}

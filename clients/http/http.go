// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

// Package http wraps HTTP requests as observables. A request is made each
// time the observable is observed, and it is cancelled with the observing
// context.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/joamaki/rxplay/stream"
)

type Option func(*http.Request)

func WithBasicAuth(username, password string) Option {
	return func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

func WithBody(body io.Reader) Option {
	return func(req *http.Request) {
		rc, ok := body.(io.ReadCloser)
		if !ok && body != nil {
			rc = io.NopCloser(body)
		}
		req.Body = rc
	}
}

func WithHeader(key, value string) Option {
	return func(req *http.Request) {
		req.Header.Add(key, value)
	}
}

// WithQuery adds a query parameter to the request URL.
func WithQuery(key, value string) Option {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Add(key, value)
		req.URL.RawQuery = q.Encode()
	}
}

// StatusError is returned for responses outside of the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK is true for 2xx responses.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Client struct {
	http *http.Client
	log  *slog.Logger
}

// NewClient returns a client that sends requests with 'httpClient'.
// Nil arguments fall back to http.DefaultClient and slog.Default().
func NewClient(httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{http: httpClient, log: log}
}

func (c *Client) Get(url string, options ...Option) stream.Observable[*http.Response] {
	return c.request(http.MethodGet, url, nil, options)
}

func (c *Client) Post(url string, body io.Reader, options ...Option) stream.Observable[*http.Response] {
	return c.request(http.MethodPost, url, body, options)
}

func (c *Client) request(method, url string, body io.Reader, options []Option) stream.Observable[*http.Response] {
	return stream.FuncObservable[*http.Response](
		func(ctx context.Context, next func(*http.Response) error) error {
			req, err := http.NewRequestWithContext(ctx, method, url, body)
			if err != nil {
				return err
			}
			for _, opt := range options {
				opt(req)
			}

			start := time.Now()
			resp, err := c.http.Do(req)
			if err != nil {
				c.log.Debug("http request failed", "method", method, "url", redact(req.URL), "error", err)
				return err
			}
			c.log.Debug("http request",
				"method", method,
				"url", redact(req.URL),
				"status", resp.StatusCode,
				"duration", time.Since(start))
			return next(resp)
		})
}

// redact hides credentials passed in the query.
func redact(u *url.URL) string {
	q := u.Query()
	for _, key := range []string{"appid", "api_key", "token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	out := *u
	out.RawQuery = q.Encode()
	return out.String()
}

// ReadResponse reads the bodies of the responses. Responses of any status
// are passed through.
func ReadResponse(in stream.Observable[*http.Response]) stream.Observable[Response] {
	return stream.MapErr(in, func(resp *http.Response) (Response, error) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Response{}, err
		}
		return Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	})
}

// ResponseBody reads the bodies of 2xx responses. Any other status fails
// the stream with a *StatusError.
func ResponseBody(in stream.Observable[*http.Response]) stream.Observable[[]byte] {
	return stream.MapErr(in, func(resp *http.Response) ([]byte, error) {
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, &StatusError{URL: resp.Request.URL.Path, StatusCode: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
}

// DecodeJSON decodes each body as JSON into T.
func DecodeJSON[T any](in stream.Observable[[]byte]) stream.Observable[T] {
	return stream.MapErr(in, func(body []byte) (T, error) {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return v, fmt.Errorf("decode %T: %w", v, err)
		}
		return v, nil
	})
}

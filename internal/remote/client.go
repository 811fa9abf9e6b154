package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "github.com/Tomlord1122/join/internal/remote"
	maxReplySize = 8 << 20
)

// ClientConfig configures the Firebase Realtime Database REST client.
type ClientConfig struct {
	BaseURL string
	// Auth is sent as the ?auth= query parameter when set.
	Auth string
	// Timeout of zero leaves the http.Client default in place.
	Timeout        time.Duration
	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
	Logger         *logrus.Logger

	// BreakerFailures consecutive failures open the breaker for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client implements Store over the database's REST API: GET reads a subtree,
// PUT replaces, PATCH merges and DELETE removes. Each call is attempted once.
type Client struct {
	base    *url.URL
	auth    string
	http    *http.Client
	tracer  trace.Tracer
	logger  *logrus.Logger
	breaker *gobreaker.CircuitBreaker
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}

	c := &Client{
		base:   base,
		auth:   cfg.Auth,
		http:   httpClient,
		tracer: tp.Tracer(tracerName),
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Client errors mean the request was wrong, not that the store is down.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return c, nil
}

func (c *Client) Read(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := c.do(ctx, "remote.read", http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(data), nil
}

func (c *Client) Write(ctx context.Context, path string, value any, mode Mode) error {
	var method string
	switch mode {
	case ModePut:
		method = http.MethodPut
	case ModePatch:
		method = http.MethodPatch
	case ModeDelete:
		method = http.MethodDelete
	default:
		return fmt.Errorf("unsupported write mode %s", mode)
	}
	_, err := c.do(ctx, "remote.write", method, path, value, mode != ModeDelete)
	return err
}

func (c *Client) endpoint(segs []string) string {
	u := *c.base
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/") + ".json"
	u.RawPath = ""
	if c.auth != "" {
		q := u.Query()
		q.Set("auth", c.auth)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, value any, withBody bool) ([]byte, error) {
	segs, err := Segments(path)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("store.method", method),
			attribute.String("store.path", path),
		),
	)
	defer span.End()

	var body []byte
	if withBody {
		if body, err = json.Marshal(value); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "encode body")
			return nil, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.endpoint(segs), reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
		if err != nil {
			return nil, fmt.Errorf("%s %s: read reply: %w", method, path, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		return data, nil
	})

	entry := c.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		entry.WithError(err).Warn("remote store request failed")
		return nil, err
	}
	entry.Debug("remote store request")
	return result.([]byte), nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("transport error")

// StatusError is a non-2xx response: the server understood and refused.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	// Detail is the human-readable message extracted from Body.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// IsRejection reports whether err carries a server response.
func IsRejection(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// StatusCode returns the response status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// TokenSource supplies the bearer credential; empty means anonymous.
type TokenSource interface {
	AccessToken() string
}

// TokenFunc adapts a function to TokenSource. It lets the gateway read a
// session that is built after it.
type TokenFunc func() string

func (f TokenFunc) AccessToken() string { return f() }

// Gateway sends one request per logical operation to the backend API,
// attaching the current access token. There is no retry or queueing.
type Gateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

func NewGateway(baseURL string, timeout time.Duration, tokens TokenSource, log zerolog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log.With().Str("component", "gateway").Logger(),
	}
}

// do sends an authenticated request. body and out may be nil.
func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return g.send(ctx, method, path, query, body, out, true)
}

// doPublic sends a request without credentials. The token endpoints must not
// carry a stale bearer token, which the server would reject before the view runs.
func (g *Gateway) doPublic(ctx context.Context, method, path string, body, out any) error {
	return g.send(ctx, method, path, nil, body, out, false)
}

func (g *Gateway) send(ctx context.Context, method, path string, query url.Values, body, out any, auth bool) error {
	target := g.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && g.tokens != nil {
		if token := g.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrTransport, method, path, err)
	}
	g.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Detail:     detailFrom(respBody),
		}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// detailFrom extracts a message from a REST framework error body:
// {"detail": "..."}, {"field": ["..."]} or a bare list of strings.
func detailFrom(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		if raw, ok := obj["detail"]; ok {
			if msg := messages(raw); len(msg) > 0 {
				return strings.Join(msg, " ")
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			msg := messages(obj[k])
			if len(msg) == 0 {
				continue
			}
			if k == "non_field_errors" {
				parts = append(parts, strings.Join(msg, " "))
				continue
			}
			parts = append(parts, k+": "+strings.Join(msg, " "))
		}
		return strings.Join(parts, "; ")
	}
	if msg := messages(body); len(msg) > 0 {
		return strings.Join(msg, " ")
	}

	text := string(body)
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

func messages(raw json.RawMessage) []string {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

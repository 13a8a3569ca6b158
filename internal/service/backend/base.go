package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/pkg/config"
	xhttp "FxCast/pkg/http"
)

// HTTPServiceBase centralizes client construction, the bounded wait and
// mapping of transport failures onto the error taxonomy.
type HTTPServiceBase struct {
	baseURL string
	timeout time.Duration
	client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	timeout := cfg.Backend.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: cfg.Backend.BaseURL,
		timeout: timeout,
		// The per-request context carries the deadline; the client timeout is a backstop.
		client: xhttp.NewClient(xhttp.WithTimeout(timeout + time.Second)),
	}
}

// GetJSON issues a GET to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, op, path string, query map[string][]string, dest interface{}) error {
	return b.send(ctx, op, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		QueryParams: query,
		Headers: map[string]string{
			"Accept": "application/json",
		},
	}, dest)
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, op, path string, payload interface{}, dest interface{}) error {
	return b.send(ctx, op, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: payload,
	}, dest)
}

func (b *HTTPServiceBase) send(ctx context.Context, op string, opts *xhttp.RequestOptions, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return errs.Network(op, fmt.Errorf("backend url not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.client.SendAndParse(ctx, opts, dest); err != nil {
		return classify(ctx, op, err)
	}
	return nil
}

// classify maps a client error onto the taxonomy. No retries are attempted.
func classify(ctx context.Context, op string, err error) error {
	var statusErr *xhttp.StatusError
	if errors.As(err, &statusErr) {
		body := statusErr.Body
		if body == "" {
			body = statusErr.Status
		}
		return errs.Server(op, statusErr.StatusCode, body)
	}
	var decodeErr *xhttp.DecodeError
	if errors.As(err, &decodeErr) {
		return errs.Protocol(op, "malformed response: %v", decodeErr.Err)
	}
	if errors.Is(err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.Canceled(op, err)
	}
	if xhttp.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.Timeout(op, err)
	}
	return errs.Network(op, err)
}

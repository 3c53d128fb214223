package leadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/leadbilling/internal/config"
	obslogger "github.com/smallbiznis/leadbilling/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/leadbilling/internal/observability/metrics"
	obstracing "github.com/smallbiznis/leadbilling/internal/observability/tracing"
	"github.com/smallbiznis/leadbilling/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxErrorBodyBytes = 64 << 10

// Request describes one call against the store.
type Request struct {
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      any
}

// Stream is a binary response whose body the caller must close.
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewClient(p Params) (*Client, error) {
	return New(p.Cfg.LeadAPI, p.Log, p.Metrics)
}

func New(cfg config.LeadAPIConfig, log *zap.Logger, metrics *obsmetrics.Metrics) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse lead api base url: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(cfg.Token),
		http:    obstracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		log:     log.Named("leadapi.client"),
		metrics: metrics,
	}, nil
}

// Do sends req and decodes the JSON response into out. keys names the
// envelope fields the payload may be wrapped in ("leads", "invoice", ...).
func (c *Client) Do(ctx context.Context, req Request, out any, keys ...string) error {
	resp, err := c.send(ctx, req, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &StoreError{Operation: req.Operation, Err: err}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrap(body, keys), out); err != nil {
		return &StoreError{Operation: req.Operation, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Stream sends req and hands back the raw body, used for PDF downloads.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	resp, err := c.send(ctx, req, "application/pdf, application/octet-stream")
	if err != nil {
		return nil, err
	}
	return &Stream{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Filename:      filenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}, nil
}

func (c *Client) send(ctx context.Context, req Request, accept string) (*http.Response, error) {
	if c == nil || c.baseURL == nil {
		return nil, ErrNotConfigured
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", req.Operation, err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		endpoint.RawQuery = req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(obstracing.WithStoreOperation(ctx, req.Operation), req.Method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", accept)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if auth := authorizationFromContext(ctx); auth != "" {
		httpReq.Header.Set("Authorization", auth)
	} else if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	correlation.InjectHeader(ctx, httpReq.Header)

	log := obslogger.WithContext(ctx, c.log)
	if ce := log.Check(zap.DebugLevel, "lead api request"); ce != nil {
		ce.Write(
			zap.String("operation", req.Operation),
			zap.String("method", req.Method),
			zap.String("path", endpoint.Path),
			zap.Any("headers", obslogger.MaskHeaders(httpReq.Header)),
			zap.Any("body", obslogger.MaskPayload(req.Body)),
		)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.RecordStoreRequest(ctx, req.Operation, 0, time.Since(start))
		log.Warn("lead api request failed", zap.String("operation", req.Operation), zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &StoreError{Operation: req.Operation, Err: err}
	}
	c.metrics.RecordStoreRequest(ctx, req.Operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		storeErr := &StoreError{
			Operation: req.Operation,
			Status:    resp.StatusCode,
			Message:   parseErrorBody(raw),
		}
		log.Warn("lead api rejected request",
			zap.String("operation", req.Operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", storeErr.Message),
		)
		return nil, storeErr
	}
	return resp, nil
}

func unwrap(body []byte, keys []string) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	for _, key := range keys {
		if value, ok := obj[key]; ok {
			return value
		}
	}
	if data, ok := obj["data"]; ok {
		return unwrap(data, keys)
	}
	return trimmed
}

func filenameFromDisposition(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return params["filename"]
}

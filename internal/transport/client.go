package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dswarm/dswarm/internal/workspace"
)

const DefaultBackendURL = "http://localhost:8087/dmp"

// Client posts transformation requests to the backend.
type Client struct {
	endpoint string
	http     *http.Client
	log      *zap.SugaredLogger
}

func NewClient(backendURL string, httpClient *http.Client, log *zap.SugaredLogger) *Client {
	base := strings.TrimRight(strings.TrimSpace(backendURL), "/")
	if base == "" {
		base = DefaultBackendURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{endpoint: base + "/transformations", http: httpClient, log: log}
}

// Endpoint is the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) Transform(ctx context.Context, req *workspace.Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode transformation request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transformation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post transformation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, statusError(c.endpoint, resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transformation reply: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("null")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("transformation reply is not json")
	}
	c.log.Debugw("transformation finished", "bytes", len(raw), "status", resp.StatusCode)
	return json.RawMessage(raw), nil
}

var _ workspace.Transformer = (*Client)(nil)

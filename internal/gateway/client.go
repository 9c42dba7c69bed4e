// Package gateway is the client for the external tool gateway, which
// exposes email, calendar, and chat tools over MCP JSON-RPC. The gateway
// authenticates callers with OAuth2 client credentials.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/ebuka1017/Robin/internal/cache"
	"github.com/ebuka1017/Robin/internal/config"
	"github.com/ebuka1017/Robin/internal/logging"
)

const (
	rpcTimeout   = 30 * time.Second
	toolsListTTL = time.Hour
)

// ToolSpec describes one tool as reported by the gateway.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Client talks MCP JSON-RPC to the tool gateway. The OAuth2 token is
// acquired and refreshed by the client-credentials TokenSource; the tool
// list is cached to avoid a gateway round trip per session.
type Client struct {
	mcpURL string
	http   *http.Client
	cache  cache.Cache
	log    *logging.Logger
	nextID atomic.Int64
}

// New creates a gateway client from config.
func New(cfg config.GatewayConfig, c cache.Cache, log *logging.Logger) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		TokenURL:     cfg.OAuth.TokenURL,
	}

	httpClient := cc.Client(context.Background())
	httpClient.Timeout = rpcTimeout

	return &Client{
		mcpURL: cfg.MCPURL,
		http:   httpClient,
		cache:  c,
		log:    log.Sub("gateway"),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// call performs one MCP JSON-RPC request.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mcpURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcp call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("mcp call %s: status %d: %s", method, resp.StatusCode, string(data))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decoding rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		c.log.Error().Str("method", method).Int("code", rpcResp.Error.Code).
			Str("message", rpcResp.Error.Message).Msg("mcp error")
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// ListTools returns the tools available through the gateway, using the
// cached list when present.
func (c *Client) ListTools(ctx context.Context) ([]ToolSpec, error) {
	var cached []ToolSpec
	if c.cache.Get(ctx, cache.KeyToolsList, &cached) {
		return cached, nil
	}

	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Tools []ToolSpec `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("parsing tools list: %w", err)
	}

	c.cache.Set(ctx, cache.KeyToolsList, parsed.Tools, toolsListTTL)
	c.log.Info().Int("count", len(parsed.Tools)).Msg("tools listed")
	return parsed.Tools, nil
}

// Invoke executes one tool through the gateway and returns its raw result.
func (c *Client) Invoke(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error) {
	args := arguments
	if len(args) == 0 {
		args = []byte("{}")
	}
	return c.call(ctx, "tools/invoke", map[string]any{
		"name":      name,
		"arguments": args,
	})
}

// bedrockTool is the model-facing tool definition format.
type bedrockTool struct {
	ToolSpec bedrockToolSpec `json:"toolSpec"`
}

type bedrockToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema bedrockInputSchema `json:"inputSchema"`
}

type bedrockInputSchema struct {
	JSON json.RawMessage `json:"json"`
}

// ToolConfiguration returns the gateway's tools converted to the model's
// toolSpec format, ready to embed in a promptStart event.
func (c *Client) ToolConfiguration(ctx context.Context) (json.RawMessage, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	converted := make([]bedrockTool, 0, len(tools))
	for _, t := range tools {
		schema := t.InputSchema
		if len(schema) == 0 {
			schema = []byte("{}")
		}
		converted = append(converted, bedrockTool{
			ToolSpec: bedrockToolSpec{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: bedrockInputSchema{JSON: schema},
			},
		})
	}

	return json.Marshal(converted)
}

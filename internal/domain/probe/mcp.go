// Task 4.4: MCP handshake for toolgroup endpoints.
// Hand-rolled JSON-RPC 2.0 over HTTP POST: the doctor needs exactly two
// calls (initialize, tools/list), so the wire types live here instead of
// pulling in a protocol SDK.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// jsonRPCRequest is a JSON-RPC 2.0 request envelope.
type jsonRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// jsonRPCResponse is a JSON-RPC 2.0 response envelope.
type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

// jsonRPCError is a JSON-RPC 2.0 error object.
type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Tool is an MCP tool definition as advertised by tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

const mcpProtocolVersion = "2024-11-05"

// handshake performs the minimal MCP exchange: initialize, then
// tools/list. Returns the advertised tools.
func handshake(ctx context.Context, client *http.Client, uri string) ([]Tool, error) {
	initReq := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": mcpProtocolVersion,
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "stackd-doctor", "version": "1"},
		},
	}
	if _, err := call(ctx, client, uri, initReq); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	listReq := jsonRPCRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"}
	result, err := call(ctx, client, uri, listReq)
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}

	var listed struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(result, &listed); err != nil {
		return nil, fmt.Errorf("tools/list: decode result: %w", err)
	}
	return listed.Tools, nil
}

// call POSTs one JSON-RPC request and returns the result payload.
func call(ctx context.Context, client *http.Client, uri string, rpc jsonRPCRequest) (json.RawMessage, error) {
	body, err := json.Marshal(rpc)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", httpResp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// Task 5.3: data-plane chat completion.
// These calls target a full stack server's inference API; stackd's own
// control plane does not serve them.
package stackclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SamplingParams tunes generation.
type SamplingParams struct {
	Strategy    map[string]any `json:"strategy,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
}

// ChatCompletionRequest is the request body for chat completion.
type ChatCompletionRequest struct {
	ModelID        string          `json:"model_id"`
	Messages       []Message       `json:"messages"`
	SamplingParams *SamplingParams `json:"sampling_params,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
}

// CompletionMessage is the generated turn.
type CompletionMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
}

// ChatCompletionResponse is the response body for non-streaming completion.
type ChatCompletionResponse struct {
	CompletionMessage CompletionMessage `json:"completion_message"`
}

// ChatCompletion performs a non-streaming chat completion.
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false
	var out ChatCompletionResponse
	if err := c.post(ctx, "/v1/inference/chat-completion", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamEvent is one server-sent event of a streaming completion.
type StreamEvent struct {
	Delta      string `json:"delta"`
	StopReason string `json:"stop_reason,omitempty"`
}

// sseDonePayload terminates a stream.
const sseDonePayload = "[DONE]"

// ChatCompletionStream performs a streaming chat completion, invoking fn
// for every event. Returning false from fn stops consumption early.
func (c *Client) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, fn func(StreamEvent) bool) error {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("stackclient: encode request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v1/inference/chat-completion", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stackclient: perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	// SSE framing: "data: <json>" lines, blank-line separated, terminated
	// by a [DONE] marker.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == sseDonePayload {
			return nil
		}

		var evt StreamEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			return fmt.Errorf("stackclient: decode stream event: %w", err)
		}
		if !fn(evt) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stackclient: read stream: %w", err)
	}
	return nil
}

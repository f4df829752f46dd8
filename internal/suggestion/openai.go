// Package suggestion implements the optional SuggestionProvider adapter: a
// chat-completion call that proposes tracks complementary to a channel's
// existing playlist. Nothing in the driver loop depends on it; it is wired
// in only where the Suggestion Adapter's config is present.
package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trackrequestd/internal/model"
	"trackrequestd/internal/trackrequest"
)

const systemPrompt = "Here are the rules you should follow:\n\n" +
	"1. The user will provide you with a list of audio tracks, where each track is separated by a new line.\n\n" +
	"2. Create a valid JSON array containing two audio tracks that will ideally fit existing ones in the list in terms of vibe and mood. Objects should have the following fields: title, artist and album.\n\n" +
	"3. Without any additional comments and descriptions. Just array."

// Client is a chat-completion backed SuggestionProvider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ trackrequest.SuggestionProvider = (*Client)(nil)

// New builds a Client against baseURL (an OpenAI-compatible chat
// completions endpoint) using apiKey as a bearer token.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Suggest asks the chat model for tracks complementary to the given
// channel contents. A response that doesn't parse as the expected JSON
// array is treated as no suggestions, not an error.
func (c *Client) Suggest(ctx context.Context, tracks []model.AudioMetadata) ([]model.AudioMetadata, error) {
	lines := make([]string, len(tracks))
	for i, t := range tracks {
		lines[i] = fmt.Sprintf("%s - %s", t.Artist, t.Title)
	}

	reqBody := chatRequest{
		Model: "gpt-3.5-turbo",
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: strings.Join(lines, "\n")},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("suggestion: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("suggestion: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("suggestion: chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("suggestion: unexpected status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("suggestion: decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, nil
	}

	var suggested []model.AudioMetadata
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &suggested); err != nil {
		return nil, nil
	}
	return suggested, nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenAI is a chat-completions client for the OpenAI API (or any
// compatible endpoint via a custom base URL).
type OpenAI struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAI creates an OpenAI client. baseURL has no trailing slash,
// e.g. "https://api.openai.com/v1".
func NewOpenAI(baseURL, apiKey string) *OpenAI {
	return &OpenAI{
		baseURL: baseURL,
		apiKey:  apiKey,
		// No timeout here: the engine imposes none on provider calls and a
		// review turn can legitimately run long. Cancellation comes from ctx.
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the transcript and returns the first choice's content.
func (o *OpenAI) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("llm.OpenAI.Complete: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm.OpenAI.Complete: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm.OpenAI.Complete: %w: %w", ErrCompletionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm.OpenAI.Complete: read response: %w: %w", ErrCompletionFailed, err)
	}

	var payload chatResponse
	if unmarshalErr := json.Unmarshal(raw, &payload); unmarshalErr != nil {
		return "", fmt.Errorf("llm.OpenAI.Complete: decode response: %w: %w", ErrCompletionFailed, unmarshalErr)
	}

	if resp.StatusCode != http.StatusOK {
		detail := "status " + resp.Status
		if payload.Error != nil && payload.Error.Message != "" {
			detail = payload.Error.Message
		}
		return "", fmt.Errorf("llm.OpenAI.Complete: %w: %s", ErrCompletionFailed, detail)
	}

	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm.OpenAI.Complete: %w: empty choices", ErrCompletionFailed)
	}

	return payload.Choices[0].Message.Content, nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider talks to any chat model behind the OpenRouter
// chat-completions API.
type OpenRouterProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature *float64
	httpClient  *http.Client
}

type OpenRouterOptions struct {
	APIKey      string
	Model       string
	Temperature float64
	BaseURL     string
	Timeout     time.Duration
}

func NewOpenRouterProvider(opts OpenRouterOptions) *OpenRouterProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = openRouterBaseURL
	}
	temperature := opts.Temperature
	return &OpenRouterProvider{
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: &temperature,
		httpClient:  &http.Client{Timeout: opts.Timeout},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *OpenRouterProvider) Name() string {
	return "openrouter:" + s.model
}

func (s *OpenRouterProvider) Configure(_ context.Context, instruction string) (Handle, error) {
	return &openRouterHandle{provider: s, instruction: instruction}, nil
}

// ListChatModels returns the ids of every model OpenRouter serves.
func (s *OpenRouterProvider) ListChatModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	ids := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *OpenRouterProvider) Chat(ctx context.Context, messages []ChatMessage) (*ChatResponse, error) {
	payload, err := json.Marshal(ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited by OpenRouter (429)")
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("OpenRouter service unavailable (503)")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if chatResp.Error != nil {
		// OpenRouter reports moderation refusals as 403 errors.
		if chatResp.Error.Code == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrSafetyRejection, chatResp.Error.Message)
		}
		return nil, fmt.Errorf("openrouter error %d: %s", chatResp.Error.Code, chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter status %d", resp.StatusCode)
	}

	return &chatResp, nil
}

type openRouterHandle struct {
	provider    *OpenRouterProvider
	instruction string
}

func (h *openRouterHandle) StartDialogue(_ context.Context, history []Turn) (Dialogue, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: h.instruction})
	for _, t := range history {
		messages = append(messages, ChatMessage{Role: t.Role, Content: t.Text})
	}
	return &openRouterDialogue{provider: h.provider, messages: messages}, nil
}

type openRouterDialogue struct {
	provider *OpenRouterProvider
	messages []ChatMessage
}

// Send appends the turn pair to the history only when a reply was produced.
func (d *openRouterDialogue) Send(ctx context.Context, text string) (string, error) {
	pending := append(d.messages[:len(d.messages):len(d.messages)], ChatMessage{Role: RoleUser, Content: text})

	resp, err := d.provider.Chat(ctx, pending)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrSafetyRejection)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: content filter", ErrSafetyRejection)
	}
	reply := strings.TrimSpace(choice.Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrSafetyRejection)
	}

	d.messages = append(pending, ChatMessage{Role: RoleAssistant, Content: reply})
	return reply, nil
}

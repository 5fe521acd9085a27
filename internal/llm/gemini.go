package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API through google.golang.org/genai.
type GeminiProvider struct {
	client        *genai.Client
	model         string
	temperature   float32
	disableSafety bool
}

type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float64
	// DisableSafety lowers every harm category threshold to BLOCK_NONE.
	DisableSafety bool
}

func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{
		client:        client,
		model:         opts.Model,
		temperature:   float32(opts.Temperature),
		disableSafety: opts.DisableSafety,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini:" + p.model
}

// Configure builds the generation config; no request is made until a
// dialogue sends its first message.
func (p *GeminiProvider) Configure(_ context.Context, instruction string) (Handle, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr(p.temperature),
	}
	if p.disableSafety {
		for _, c := range []genai.HarmCategory{
			genai.HarmCategoryHarassment,
			genai.HarmCategoryHateSpeech,
			genai.HarmCategorySexuallyExplicit,
			genai.HarmCategoryDangerousContent,
		} {
			cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
				Category:  c,
				Threshold: genai.HarmBlockThresholdBlockNone,
			})
		}
	}
	return &geminiHandle{client: p.client, model: p.model, config: cfg}, nil
}

// ListChatModels returns the models that support generateContent.
func (p *GeminiProvider) ListChatModels(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		for _, action := range m.SupportedActions {
			if action == "generateContent" {
				names = append(names, strings.TrimPrefix(m.Name, "models/"))
				break
			}
		}
	}
	return names, nil
}

type geminiHandle struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func (h *geminiHandle) StartDialogue(ctx context.Context, history []Turn) (Dialogue, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		var role genai.Role = genai.RoleUser
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	chat, err := h.client.Chats.Create(ctx, h.model, h.config, contents)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &geminiDialogue{chat: chat}, nil
}

type geminiDialogue struct {
	chat *genai.Chat
}

func (d *geminiDialogue) Send(ctx context.Context, text string) (string, error) {
	resp, err := d.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("gemini send: %w", err)
	}
	return geminiText(resp)
}

// geminiText extracts the reply, mapping blocked prompts, safety stops and
// empty candidates to ErrSafetyRejection.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", ErrSafetyRejection)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrSafetyRejection, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrSafetyRejection)
	}
	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist, genai.FinishReasonSPII, genai.FinishReasonRecitation:
		return "", fmt.Errorf("%w: finish reason %s", ErrSafetyRejection, reason)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrSafetyRejection)
	}
	return text, nil
}

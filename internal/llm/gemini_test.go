package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func textResponse(text string, reason genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: reason,
		}},
	}
}

func TestGeminiText(t *testing.T) {
	got, err := geminiText(textResponse("  📦 *Beras* stoknya habis.  ", genai.FinishReasonStop))
	require.NoError(t, err)
	assert.Equal(t, "📦 *Beras* stoknya habis.", got)
}

func TestGeminiTextSafety(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"prompt blocked", &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
		}},
		{"safety stop", textResponse("", genai.FinishReasonSafety)},
		{"prohibited", textResponse("partial", genai.FinishReasonProhibitedContent)},
		{"empty text", textResponse("   ", genai.FinishReasonStop)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geminiText(tt.resp)
			assert.ErrorIs(t, err, ErrSafetyRejection)
		})
	}
}

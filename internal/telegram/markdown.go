package telegram

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage splits a message into chunks of maxLen characters,
// trying to split at newlines when possible.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if utf8.RuneCountInString(text) <= maxLen {
			parts = append(parts, text)
			break
		}

		runes := []rune(text)
		splitAt := maxLen

		// Prefer a paragraph or line break in the second half of the chunk.
		chunk := string(runes[:maxLen])
		if i := strings.LastIndex(chunk, "\n"); i >= 0 {
			if at := utf8.RuneCountInString(chunk[:i]) + 1; at > maxLen/2 {
				splitAt = at
			}
		}

		parts = append(parts, string(runes[:splitAt]))
		text = string(runes[splitAt:])
	}

	return parts
}

// FixMarkdown closes unbalanced code spans and bold markers so the text
// parses as legacy Telegram Markdown.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}
	return fixInline(text)
}

// fixInline balances ` and * outside code blocks.
func fixInline(text string) string {
	var builder strings.Builder
	inCodeBlock := false
	codeOpen := false
	boldOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && string(runes[i:i+3]) == "```" {
			if codeOpen {
				builder.WriteRune('`')
				codeOpen = false
			}
			inCodeBlock = !inCodeBlock
			builder.WriteString("```")
			i += 2
			continue
		}

		if !inCodeBlock {
			switch {
			case runes[i] == '`':
				codeOpen = !codeOpen
			case runes[i] == '*' && !codeOpen:
				boldOpen = !boldOpen
			}
		}

		builder.WriteRune(runes[i])
	}

	if codeOpen {
		builder.WriteRune('`')
	}
	if boldOpen {
		builder.WriteRune('*')
	}

	return builder.String()
}

package domain

import "time"

// InteractionRecord is one question/answer exchange. Written once.
type InteractionRecord struct {
	Timestamp      time.Time     `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	Question       string        `json:"question"`
	Answer         string        `json:"answer"`
	Duration       time.Duration `json:"duration"`
	QuestionBytes  int           `json:"question_bytes"`
	AnswerBytes    int           `json:"answer_bytes"`
}

// NewInteractionRecord fills in the payload sizes.
func NewInteractionRecord(at time.Time, conversationID, question, answer string, d time.Duration) InteractionRecord {
	return InteractionRecord{
		Timestamp:      at,
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		Duration:       d,
		QuestionBytes:  len(question),
		AnswerBytes:    len(answer),
	}
}

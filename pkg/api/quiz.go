package api

import "time"

// QuizRecord is a single completed quiz as the backend represents it.
type QuizRecord struct {
	ID             string    `json:"id"`
	Topic          string    `json:"topic"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TakenAt        time.Time `json:"taken_at"`
}

// QuizSessionRequest is the body of POST /quiz-sessions.
type QuizSessionRequest struct {
	UserID         string    `json:"user_id"`
	DeviceID       string    `json:"device_id"`
	Topic          string    `json:"topic"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TakenAt        time.Time `json:"taken_at"`
}

// QuizSessionResponse is the persisted session record.
type QuizSessionResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

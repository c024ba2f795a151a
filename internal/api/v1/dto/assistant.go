package dto

import "time"

type MessageCreateDTO struct {
	Text string `json:"text" validate:"required"`
}

type MessageResponseDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"is_error"`
}

// AnalyzeRequestDTO carries a base64 image, optionally as a data URL.
type AnalyzeRequestDTO struct {
	Image    string `json:"image" validate:"required"`
	MimeType string `json:"mime_type,omitempty" validate:"omitempty,startswith=image/"`
	Prompt   string `json:"prompt,omitempty" validate:"omitempty,max=2000"`
}

type AnalyzeResponseDTO struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

type SpeechRequestDTO struct {
	Text string `json:"text" validate:"required,max=5000"`
}

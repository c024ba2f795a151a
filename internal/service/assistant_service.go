package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gpadash/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	greetingText      = "Hello! I am your PSU Engineering Assistant. How can I help you with your GPA or studies today?"
	emptyReplyText    = "I couldn't generate a response."
	chatErrorText     = "Sorry, I encountered an error connecting to Gemini."
	analysisErrorText = "Error analyzing image. Please try again."

	DefaultAnalysisPrompt = "Analyze this document. If it's a grade sheet, list the subjects and grades. If it's a problem, solve it. Provide the output in a clear, structured markdown format."
)

var (
	ErrEmptyMessage = errors.New("message text is empty")
	ErrEmptyImage   = errors.New("image data is empty")
	ErrInvalidImage = errors.New("image data is not valid base64")
	ErrEmptySpeech  = errors.New("speech text is empty")
)

// AnalysisResult is what the document analyzer shows. Failures carry a
// placeholder text with IsError set instead of an error.
type AnalysisResult struct {
	Text    string
	IsError bool
}

// AssistantService drives the study assistant. Its message log is separate
// from course state. AI failures are turned into user-visible messages.
type AssistantService interface {
	ListMessages(ctx context.Context, userID string) []model.ChatMessage
	SendMessage(ctx context.Context, userID, text string) (*model.ChatMessage, error)
	AnalyzeDocument(ctx context.Context, userID, image, mimeType, prompt string) (*AnalysisResult, error)
	Speak(ctx context.Context, userID, text string) ([]byte, error)
}

type assistantService struct {
	gemini GeminiClient
	logger zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	logs map[string][]model.ChatMessage
}

func NewAssistantService(gemini GeminiClient, logger zerolog.Logger) AssistantService {
	return &assistantService{
		gemini: gemini,
		logger: logger.With().Str("service", "AssistantService").Logger(),
		now:    time.Now,
		logs:   map[string][]model.ChatMessage{},
	}
}

func (s *assistantService) logFor(userID string) []model.ChatMessage {
	log, ok := s.logs[userID]
	if !ok {
		log = []model.ChatMessage{{ID: "1", Role: model.RoleModel, Text: greetingText, Timestamp: s.now()}}
		s.logs[userID] = log
	}
	return log
}

func (s *assistantService) ListMessages(_ context.Context, userID string) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logFor(userID)
	out := make([]model.ChatMessage, len(log))
	copy(out, log)
	return out
}

func (s *assistantService) SendMessage(ctx context.Context, userID, text string) (*model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	log := s.logFor(userID)
	history := make([]string, 0, len(log))
	for _, m := range log {
		history = append(history, fmt.Sprintf("%s: %s", m.Role, m.Text))
	}
	s.logs[userID] = append(log, s.newMessage(model.RoleUser, text, false))
	s.mu.Unlock()

	reply, err := s.gemini.GenerateChatResponse(ctx, text, history)
	var msg model.ChatMessage
	switch {
	case err != nil:
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Chat request failed")
		msg = s.newMessage(model.RoleModel, chatErrorText, true)
	case strings.TrimSpace(reply) == "":
		msg = s.newMessage(model.RoleModel, emptyReplyText, false)
	default:
		msg = s.newMessage(model.RoleModel, reply, false)
	}

	s.mu.Lock()
	s.logs[userID] = append(s.logs[userID], msg)
	s.mu.Unlock()
	return &msg, nil
}

func (s *assistantService) AnalyzeDocument(ctx context.Context, userID, image, mimeType, prompt string) (*AnalysisResult, error) {
	data, dataMime := splitDataURL(image)
	if data == "" {
		return nil, ErrEmptyImage
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return nil, ErrInvalidImage
	}
	if mimeType == "" {
		mimeType = dataMime
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultAnalysisPrompt
	}

	text, err := s.gemini.AnalyzeImage(ctx, data, mimeType, prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Image analysis failed")
		return &AnalysisResult{Text: analysisErrorText, IsError: true}, nil
	}
	return &AnalysisResult{Text: text}, nil
}

func (s *assistantService) Speak(ctx context.Context, userID, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySpeech
	}
	audio, err := s.gemini.SpeakText(ctx, text)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Speech synthesis failed")
		return nil, err
	}
	return audio, nil
}

func (s *assistantService) newMessage(role model.ChatRole, text string, isError bool) model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
		IsError:   isError,
	}
}

// splitDataURL strips a "data:<mime>;base64," prefix and returns the
// payload and the mime type it named.
func splitDataURL(image string) (string, string) {
	image = strings.TrimSpace(image)
	if !strings.HasPrefix(image, "data:") {
		return image, ""
	}
	header, payload, ok := strings.Cut(image, ",")
	if !ok {
		return "", ""
	}
	mime := strings.TrimPrefix(header, "data:")
	mime, _, _ = strings.Cut(mime, ";")
	return payload, mime
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"gpadash/internal/api/v1/dto"
	"gpadash/internal/model"
	"gpadash/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AssistantHandler struct {
	assistantService service.AssistantService
	validate         *validator.Validate
	logger           zerolog.Logger
}

func NewAssistantHandler(assistantService service.AssistantService, validate *validator.Validate, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
		validate:         validate,
		logger:           logger.With().Str("handler", "AssistantHandler").Logger(),
	}
}

func (h *AssistantHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/assistant/messages", authMw(http.HandlerFunc(h.handleMessages)))
	mux.Handle("/assistant/analyze", authMw(http.HandlerFunc(h.analyzeDocument)))
	mux.Handle("/assistant/speech", authMw(http.HandlerFunc(h.speak)))
}

func (h *AssistantHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listMessages(w, r)
	case http.MethodPost:
		h.sendMessage(w, r)
	default:
		http.NotFound(w, r)
	}
}

// listMessages godoc
// @Summary List assistant messages
// @Description Returns the conversation log, starting with the assistant greeting.
// @Tags assistant
// @Produce json
// @Success 200 {array} dto.MessageResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /assistant/messages [get]
func (h *AssistantHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	msgs := h.assistantService.ListMessages(r.Context(), userID)
	resp := make([]dto.MessageResponseDTO, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageDTO(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// sendMessage godoc
// @Summary Send a message to the assistant
// @Description Appends the user message and returns the assistant reply. Upstream failures come back as an error bubble, not an HTTP error.
// @Tags assistant
// @Accept json
// @Produce json
// @Param message body dto.MessageCreateDTO true "Message"
// @Success 200 {object} dto.MessageResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to send message"
// @Router /assistant/messages [post]
func (h *AssistantHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.MessageCreateDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	reply, err := h.assistantService.SendMessage(r.Context(), userID, req.Text)
	if errors.Is(err, service.ErrEmptyMessage) {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Failed to send message: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTO(*reply))
}

// analyzeDocument godoc
// @Summary Analyze a document image
// @Description Sends a grade sheet or problem image to the vision model.
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body dto.AnalyzeRequestDTO true "Image and optional prompt"
// @Success 200 {object} dto.AnalyzeResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to analyze document"
// @Router /assistant/analyze [post]
func (h *AssistantHandler) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.AnalyzeRequestDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	res, err := h.assistantService.AnalyzeDocument(r.Context(), userID, req.Image, req.MimeType, req.Prompt)
	if errors.Is(err, service.ErrEmptyImage) || errors.Is(err, service.ErrInvalidImage) {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Failed to analyze document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.AnalyzeResponseDTO{Result: res.Text, IsError: res.IsError})
}

// speak godoc
// @Summary Read text aloud
// @Description Synthesizes speech and returns a 24 kHz mono WAV file.
// @Tags assistant
// @Accept json
// @Produce audio/wav
// @Param request body dto.SpeechRequestDTO true "Text to speak"
// @Success 200 {file} binary
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 502 {string} string "Failed to generate speech."
// @Router /assistant/speech [post]
func (h *AssistantHandler) speak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.SpeechRequestDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	audio, err := h.assistantService.Speak(r.Context(), userID, req.Text)
	if errors.Is(err, service.ErrEmptySpeech) {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Failed to generate speech.", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func toMessageDTO(m model.ChatMessage) dto.MessageResponseDTO {
	return dto.MessageResponseDTO{
		ID:        m.ID,
		Role:      string(m.Role),
		Text:      m.Text,
		Timestamp: m.Timestamp,
		IsError:   m.IsError,
	}
}

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const (
	chatContextPrompt = "Context: You are an academic assistant for Port Said University Faculty of Engineering students. History: %s \n User: %s"
	chatSystemPrompt  = "Be helpful, encouraging, and concise. Help with GPA questions, study tips, and engineering concepts."

	defaultImageMimeType = "image/jpeg"
	geminiAPIVersion     = "v1beta"

	// Gemini TTS returns signed 16-bit little-endian mono PCM at 24 kHz.
	ttsSampleRate = 24000
	ttsChannels   = 1
)

var (
	ErrMissingAPIKey = errors.New("gemini API key is not configured")
	ErrNoAudio       = errors.New("no audio data returned")
)

// GeminiClient is the generative AI collaborator used by the assistant.
type GeminiClient interface {
	GenerateChatResponse(ctx context.Context, prompt string, history []string) (string, error)
	AnalyzeImage(ctx context.Context, base64Image, mimeType, prompt string) (string, error)
	// SpeakText returns a playable WAV file.
	SpeakText(ctx context.Context, text string) ([]byte, error)
}

type GeminiOptions struct {
	APIKey string
	// BaseURL overrides the Gemini API host, without the API version.
	BaseURL   string
	ChatModel string
	TTSModel  string
	Voice     string
	Timeout   time.Duration
}

type geminiClient struct {
	opts   GeminiOptions
	models *genai.Models
	logger zerolog.Logger
}

// NewGeminiClient builds a client on the genai SDK. Without an API key it
// still returns a client, whose calls fail with ErrMissingAPIKey.
func NewGeminiClient(ctx context.Context, opts GeminiOptions, logger zerolog.Logger) (GeminiClient, error) {
	c := &geminiClient{
		opts:   opts,
		logger: logger.With().Str("service", "GeminiClient").Logger(),
	}
	if opts.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    opts.BaseURL,
			APIVersion: geminiAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

func (c *geminiClient) GenerateChatResponse(ctx context.Context, prompt string, history []string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(chatContextPrompt, strings.Join(history, "\n"), prompt), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(chatSystemPrompt, genai.RoleUser),
	}
	resp, err := c.generate(ctx, c.opts.ChatModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("generating chat response: %w", err)
	}
	return responseText(resp), nil
}

func (c *geminiClient) AnalyzeImage(ctx context.Context, base64Image, mimeType, prompt string) (string, error) {
	if mimeType == "" {
		mimeType = defaultImageMimeType
	}
	data, err := base64.StdEncoding.DecodeString(base64Image)
	if err != nil {
		return "", fmt.Errorf("decoding image data: %w", err)
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := c.generate(ctx, c.opts.ChatModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("analyzing image: %w", err)
	}
	return responseText(resp), nil
}

func (c *geminiClient) SpeakText(ctx context.Context, text string) ([]byte, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.opts.Voice},
			},
		},
	}
	resp, err := c.generate(ctx, c.opts.TTSModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}

	pcm := responseAudio(resp)
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}
	return encodeWAV(pcm, ttsSampleRate, ttsChannels)
}

func (c *geminiClient) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if c.models == nil {
		return nil, ErrMissingAPIKey
	}
	resp, err := c.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		// genai.APIError carries the HTTP status and the server message.
		c.logger.Error().Err(err).Str("model", model).Msg("Gemini returned error")
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	return resp, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func responseAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData.Data
		}
	}
	return nil
}

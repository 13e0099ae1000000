package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

// KimiClient is a minimal Kimi client covering the two endpoints the
// pipeline needs: audio transcription and chat completion.
type KimiClient struct {
	apiKey    string
	baseURL   string
	chatModel string
	client    *http.Client
}

// NewKimiClient creates a Kimi client using the provided config.
func NewKimiClient(cfg *config.KimiConfig) *KimiClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.moonshot.cn/v1"
	}
	model := cfg.ChatModel
	if model == "" {
		model = "moonshot-v1-8k"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &KimiClient{
		apiKey:    cfg.APIKey,
		baseURL:   base,
		chatModel: model,
		client:    &http.Client{Timeout: timeout},
	}
}

// TranscriptionResponse is the minimal ASR response shape
type TranscriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads a WAV file to the transcription endpoint and returns
// the plain transcript text. An empty string is a valid "no speech detected"
// outcome, distinct from an error.
func (k *KimiClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("buffer audio file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+k.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := k.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("kimi ASR returned status %d", resp.StatusCode)
	}

	var tr TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	return tr.Text, nil
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string      `json:"model,omitempty"`
	Messages    interface{} `json:"messages,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletion sends a single-turn prompt and returns the assistant content
func (k *KimiClient) ChatCompletion(ctx context.Context, prompt string) (string, error) {
	reqBody := ChatRequest{
		Model:       k.chatModel,
		Messages:    []map[string]string{{"role": "user", "content": prompt}},
		Temperature: 0.7,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+k.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("kimi returned status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from kimi")
	}
	return cr.Choices[0].Message.Content, nil
}

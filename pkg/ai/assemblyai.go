package ai

import (
	"context"
	"fmt"
	"os"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

// AssemblyAIClient is the alternative transcription backend, using the
// official SDK's synchronous upload-and-wait flow.
type AssemblyAIClient struct {
	client *aai.Client
}

// NewAssemblyAIClient creates an AssemblyAI client using the provided config.
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig) *AssemblyAIClient {
	return &AssemblyAIClient{
		client: aai.NewClient(cfg.APIKey),
	}
}

// Transcribe uploads the audio file and blocks until the transcript is
// ready. A nil Text field means no speech was detected; that is returned as
// an empty string, not an error.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	params := &aai.TranscriptOptionalParams{
		LanguageDetection: aai.Bool(true),
	}
	transcript, err := c.client.Transcripts.TranscribeFromReader(ctx, f, params)
	if err != nil {
		return "", fmt.Errorf("assemblyai transcription: %w", err)
	}
	if transcript.Text == nil {
		return "", nil
	}
	return *transcript.Text, nil
}

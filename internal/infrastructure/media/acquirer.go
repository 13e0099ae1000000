package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
)

// Acquirer materializes a normalized audio file from a recording download
// URL: fetch the container, then transcode to mono 16 kHz PCM WAV for the
// transcription step. All intermediate files live in a private temp dir that
// the returned cleanup removes; on failure nothing survives on disk.
type Acquirer struct {
	logger      *zap.Logger
	connections int
	httpClient  *http.Client

	// overridable for tests
	lookPath func(string) (string, error)
}

// NewAcquirer creates an Acquirer. connections is the parallel-connection
// count passed to aria2c when it is installed; plain HTTP is the fallback.
func NewAcquirer(connections int, logger *zap.Logger) *Acquirer {
	if connections <= 0 {
		connections = 8
	}
	return &Acquirer{
		logger:      logger,
		connections: connections,
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		lookPath:    exec.LookPath,
	}
}

// Acquire downloads the recording and extracts the audio track. The caller
// must invoke cleanup when done with the returned path; on error the temp
// dir is already removed and cleanup is a no-op.
func (a *Acquirer) Acquire(ctx context.Context, downloadURL, recordID string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "meeting-ingest-")
	if err != nil {
		return "", func() {}, apperrors.ErrAcquisitionFailed(recordID, err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	containerPath := filepath.Join(dir, recordID+".mp4")
	wavPath := filepath.Join(dir, recordID+".wav")

	if err := a.fetch(ctx, downloadURL, dir, containerPath); err != nil {
		cleanup()
		return "", func() {}, apperrors.ErrAcquisitionFailed(recordID, err)
	}

	if err := a.extractAudio(ctx, containerPath, wavPath); err != nil {
		cleanup()
		return "", func() {}, apperrors.ErrAcquisitionFailed(recordID, err)
	}

	if a.logger != nil {
		a.logger.Debug("audio extracted",
			zap.String("record_id", recordID),
			zap.String("wav_path", wavPath),
		)
	}
	return wavPath, cleanup, nil
}

// fetch prefers aria2c for multi-connection throughput on large containers
// and falls back to a plain streamed GET.
func (a *Acquirer) fetch(ctx context.Context, downloadURL, dir, dest string) error {
	if _, err := a.lookPath("aria2c"); err == nil {
		cmd := exec.CommandContext(ctx, "aria2c",
			"-x", strconv.Itoa(a.connections),
			"-d", dir,
			"-o", filepath.Base(dest),
			downloadURL,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("aria2c download: %w\n%s", err, string(out))
		}
		return nil
	}
	return a.download(ctx, downloadURL, dest)
}

// download streams the container over a single HTTP connection. A partial
// file is removed before returning the error.
func (a *Acquirer) download(ctx context.Context, downloadURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("download stream: %w", err)
	}
	return f.Close()
}

// extractAudio transcodes the container to mono 16 kHz WAV.
func (a *Acquirer) extractAudio(ctx context.Context, src, dest string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", src,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		dest,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w\n%s", err, string(out))
	}
	return nil
}

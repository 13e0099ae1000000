package wemeet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

// Client is a minimal client for the corp recording endpoints of the
// meeting platform API. Every request is signed; timestamps and nonces are
// regenerated per attempt, so callers may retry freely.
type Client struct {
	baseURL string
	signer  *Signer
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a signed API client using the provided config.
func NewClient(cfg *config.MeetingConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		signer:  NewSigner(cfg),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Attendee is one participant of a recorded meeting
type Attendee struct {
	UserID string `json:"userid"`
}

// MeetingRecord is the listing metadata for one recording
type MeetingRecord struct {
	MeetingRecordID string     `json:"meeting_record_id"`
	MeetingID       string     `json:"meeting_id"`
	StartTime       int64      `json:"start_time"`
	EndTime         int64      `json:"end_time"`
	Attendees       []Attendee `json:"attendees"`
}

// AttendeeIDs returns the attendee userids in listing order.
func (m MeetingRecord) AttendeeIDs() []string {
	ids := make([]string, 0, len(m.Attendees))
	for _, a := range m.Attendees {
		ids = append(ids, a.UserID)
	}
	return ids
}

// RecordsPage is one page of the corp records listing
type RecordsPage struct {
	TotalCount int             `json:"total_count"`
	TotalPages int             `json:"total_pages"`
	Records    []MeetingRecord `json:"records"`
}

// RecordFile is one downloadable artifact of a recording
type RecordFile struct {
	RecordFileID string `json:"record_file_id"`
	PlayURL      string `json:"play_url"`
	DownloadURL  string `json:"download_url"`
}

// RecordAddresses is the address-resolution response for one recording
type RecordAddresses struct {
	RecordFiles []RecordFile `json:"record_file_list"`
}

// ListRecords fetches one page of recording metadata for [start, end).
// Callers drive pagination until page > TotalPages or an empty page.
func (c *Client) ListRecords(ctx context.Context, start, end int64, page, pageSize int) (*RecordsPage, error) {
	query := BuildQuery(map[string]string{
		"start_time": strconv.FormatInt(start, 10),
		"end_time":   strconv.FormatInt(end, 10),
		"page":       strconv.Itoa(page),
		"page_size":  strconv.Itoa(pageSize),
	})
	uri := "/v1/corp/records?" + query

	var result RecordsPage
	if err := c.get(ctx, uri, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResolveAddresses fetches the currently valid play/download URLs for one
// recording. An empty file list means server-side post-processing has not
// finished; that is reported as a retryable not-ready error.
func (c *Client) ResolveAddresses(ctx context.Context, recordID string) (*RecordAddresses, error) {
	query := BuildQuery(map[string]string{
		"meeting_record_id": recordID,
	})
	uri := "/v1/corp/addresses?" + query

	var result RecordAddresses
	if err := c.get(ctx, uri, &result); err != nil {
		return nil, err
	}
	if len(result.RecordFiles) == 0 {
		return nil, apperrors.ErrNotReady(recordID)
	}
	return &result, nil
}

// get signs and executes a GET, mapping the platform's error surface onto
// the pipeline error taxonomy.
func (c *Client) get(ctx context.Context, uri string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+uri, nil)
	if err != nil {
		return err
	}
	req.Header = c.signer.Sign(http.MethodGet, uri, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.ErrTransient("meeting API request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.ErrSignatureRejected(string(body))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.ErrUnauthorized(resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrRecordingNotFound(uri)
	default:
		return apperrors.ErrTransient("meeting API request",
			fmt.Errorf("meeting API returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.ErrTransient("decode meeting API response", err)
	}

	if c.logger != nil {
		c.logger.Debug("meeting API call succeeded", zap.String("uri", uri))
	}
	return nil
}

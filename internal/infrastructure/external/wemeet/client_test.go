package wemeet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

func testClient(baseURL string) *Client {
	return NewClient(&config.MeetingConfig{
		AppID:         "app",
		SdkID:         "sdk",
		SecretID:      "sid",
		SecretKey:     "skey",
		BaseURL:       baseURL,
		SignWithSdkID: true,
	}, nil)
}

func TestListRecords_SignedAndDecoded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/corp/records" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		// Query keys must arrive sorted; the same string was signed.
		if r.URL.RawQuery != "end_time=200&page=1&page_size=50&start_time=100" {
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
		for _, h := range []string{"AppId", "SdkId", "X-TC-Key", "X-TC-Nonce", "X-TC-Timestamp", "X-TC-Signature"} {
			if r.Header.Get(h) == "" {
				t.Fatalf("missing header %s", h)
			}
		}
		json.NewEncoder(w).Encode(RecordsPage{
			TotalCount: 1,
			TotalPages: 1,
			Records: []MeetingRecord{{
				MeetingRecordID: "rec-1",
				MeetingID:       "m-1",
				StartTime:       100,
				EndTime:         160,
				Attendees:       []Attendee{{UserID: "u1"}, {UserID: "u2"}},
			}},
		})
	}))
	defer ts.Close()

	page, err := testClient(ts.URL).ListRecords(context.Background(), 100, 200, 1, 50)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if page.TotalPages != 1 || len(page.Records) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if got := page.Records[0].AttendeeIDs(); len(got) != 2 || got[0] != "u1" {
		t.Fatalf("unexpected attendees: %v", got)
	}
}

func TestListRecords_SignatureRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code":20001}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).ListRecords(context.Background(), 0, 1, 1, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.CodeOf(err) != apperrors.ErrorCode_AUTH_REJECTED {
		t.Fatalf("expected AUTH_REJECTED, got %s", apperrors.CodeOf(err))
	}
	if apperrors.IsRetryable(err) {
		t.Fatal("a rejected signature must not be retryable")
	}
}

func TestListRecords_TransientOn5xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).ListRecords(context.Background(), 0, 1, 1, 10)
	if !apperrors.IsRetryable(err) {
		t.Fatalf("5xx must be retryable, got %v", err)
	}
}

func TestResolveAddresses_NotReadyOnEmptyFileList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("meeting_record_id"); got != "rec-9" {
			t.Fatalf("unexpected record id %q", got)
		}
		json.NewEncoder(w).Encode(RecordAddresses{})
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).ResolveAddresses(context.Background(), "rec-9")
	if !apperrors.IsNotReady(err) {
		t.Fatalf("expected NOT_READY, got %v", err)
	}
}

func TestResolveAddresses_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RecordAddresses{
			RecordFiles: []RecordFile{{
				RecordFileID: "f1",
				PlayURL:      "https://example.com/play",
				DownloadURL:  "https://example.com/download",
			}},
		})
	}))
	defer ts.Close()

	addrs, err := testClient(ts.URL).ResolveAddresses(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("ResolveAddresses failed: %v", err)
	}
	if addrs.RecordFiles[0].DownloadURL != "https://example.com/download" {
		t.Fatalf("unexpected addresses: %+v", addrs)
	}
}

func TestResolveAddresses_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).ResolveAddresses(context.Background(), "gone")
	if apperrors.CodeOf(err) != apperrors.ErrorCode_NOT_FOUND {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if apperrors.IsRetryable(err) {
		t.Fatal("not-found must not be retryable")
	}
}

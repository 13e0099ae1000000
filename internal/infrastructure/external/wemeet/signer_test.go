package wemeet

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

func fixedSigner(signWithSdkID bool) *Signer {
	s := NewSigner(&config.MeetingConfig{
		AppID:         "233276242",
		SdkID:         "27370101959",
		SecretID:      "test-secret-id",
		SecretKey:     "test-secret-key",
		SignWithSdkID: signWithSdkID,
	})
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	s.nonce = func() string { return "fixed-nonce" }
	return s
}

func expectedSignature(secretKey, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// The canonical string format is the single source of truth for request
// authentication: three newlines, header pairs sorted ascending, and the
// body position always present (empty for GET). Any drift here produces
// opaque 400s from the platform, so every byte is pinned.
func TestCanonicalString_GET(t *testing.T) {
	s := fixedSigner(true)
	uri := "/v1/corp/records?end_time=200&page=1&page_size=50&start_time=100"

	headerLine := s.headerLine("1700000000", "fixed-nonce")
	wantHeaderLine := "SdkId=27370101959&X-TC-Key=test-secret-id&X-TC-Nonce=fixed-nonce&X-TC-Timestamp=1700000000"
	if headerLine != wantHeaderLine {
		t.Fatalf("header line mismatch:\n got %q\nwant %q", headerLine, wantHeaderLine)
	}

	canonical := canonicalString("GET", headerLine, uri, "")
	want := "GET\n" + wantHeaderLine + "\n" + uri + "\n"
	if canonical != want {
		t.Fatalf("canonical string mismatch:\n got %q\nwant %q", canonical, want)
	}
	if strings.Count(canonical, "\n") != 3 {
		t.Fatalf("expected exactly 3 newlines, got %d", strings.Count(canonical, "\n"))
	}
	if !strings.HasSuffix(canonical, "\n") {
		t.Fatal("GET canonical string must end with a trailing newline (empty body)")
	}
}

func TestCanonicalString_POSTBody(t *testing.T) {
	s := fixedSigner(true)
	body := `{"meeting_record_id":"abc"}`

	headerLine := s.headerLine("1700000000", "fixed-nonce")
	canonical := canonicalString("POST", headerLine, "/v1/corp/records", body)

	if !strings.HasSuffix(canonical, "\n"+body) {
		t.Fatalf("body must follow a newline at the end of the canonical string, got %q", canonical)
	}
	if strings.Count(canonical, "\n") != 3 {
		t.Fatalf("expected exactly 3 newlines, got %d", strings.Count(canonical, "\n"))
	}
}

func TestSign_Deterministic(t *testing.T) {
	s := fixedSigner(true)
	uri := "/v1/corp/addresses?meeting_record_id=r1"

	h1 := s.Sign("GET", uri, "")
	h2 := s.Sign("GET", uri, "")
	if h1.Get("X-TC-Signature") != h2.Get("X-TC-Signature") {
		t.Fatal("fixed nonce/timestamp must produce identical signatures")
	}

	canonical := "GET\n" +
		"SdkId=27370101959&X-TC-Key=test-secret-id&X-TC-Nonce=fixed-nonce&X-TC-Timestamp=1700000000\n" +
		uri + "\n"
	want := expectedSignature("test-secret-key", canonical)
	if got := h1.Get("X-TC-Signature"); got != want {
		t.Fatalf("signature mismatch: got %q want %q", got, want)
	}
}

func TestSign_WithoutSdkID(t *testing.T) {
	s := fixedSigner(false)
	uri := "/v1/corp/records?page=1"

	headerLine := s.headerLine("1700000000", "fixed-nonce")
	want := "X-TC-Key=test-secret-id&X-TC-Nonce=fixed-nonce&X-TC-Timestamp=1700000000"
	if headerLine != want {
		t.Fatalf("header line mismatch without SdkId:\n got %q\nwant %q", headerLine, want)
	}

	// SdkId stays out of the signature but is still sent on the wire.
	h := s.Sign("GET", uri, "")
	if h.Get("SdkId") != "27370101959" {
		t.Fatal("SdkId header must be sent even when excluded from the signature")
	}
	if h.Get("AppId") != "233276242" {
		t.Fatal("AppId header must always be sent")
	}

	canonical := "GET\n" + want + "\n" + uri + "\n"
	if got := h.Get("X-TC-Signature"); got != expectedSignature("test-secret-key", canonical) {
		t.Fatal("signature must be computed over the SdkId-free header line")
	}
}

func TestSign_FreshNoncePerCall(t *testing.T) {
	s := NewSigner(&config.MeetingConfig{
		AppID:     "a",
		SdkID:     "s",
		SecretID:  "id",
		SecretKey: "key",
	})

	h1 := s.Sign("GET", "/v1/corp/records?page=1", "")
	h2 := s.Sign("GET", "/v1/corp/records?page=1", "")
	if h1.Get("X-TC-Nonce") == h2.Get("X-TC-Nonce") {
		t.Fatal("nonce must be regenerated per call")
	}
}

func TestBuildQuery_SortsKeys(t *testing.T) {
	got := BuildQuery(map[string]string{
		"start_time": "100",
		"page_size":  "50",
		"end_time":   "200",
		"page":       "1",
	})
	want := "end_time=200&page=1&page_size=50&start_time=100"
	if got != want {
		t.Fatalf("query mismatch: got %q want %q", got, want)
	}
}

package wemeet

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

// Signer produces the authenticated header set for one meeting API request.
//
// The canonical string is
//
//	METHOD \n header-line \n path-with-query \n body
//
// with the trailing newline always present (body is empty for GET). The
// header-line joins the signing headers as Name=Value pairs, sorted by name
// in ASCII ascending order. The signature is base64(HMAC-SHA256(secretKey,
// canonical)). A mismatch anywhere in this byte sequence yields an opaque
// HTTP 400 from the platform, so the exact format is pinned by tests.
//
// Whether SdkId participates in the header-line differs between platform
// deployments; cfg.SignWithSdkID pins the variant. AppId is always sent as a
// plain header and never signed.
type Signer struct {
	appID         string
	sdkID         string
	secretID      string
	secretKey     string
	signWithSdkID bool

	// overridable for deterministic tests
	now   func() time.Time
	nonce func() string
}

// NewSigner builds a Signer from validated configuration.
func NewSigner(cfg *config.MeetingConfig) *Signer {
	return &Signer{
		appID:         cfg.AppID,
		sdkID:         cfg.SdkID,
		secretID:      cfg.SecretID,
		secretKey:     cfg.SecretKey,
		signWithSdkID: cfg.SignWithSdkID,
		now:           time.Now,
		nonce:         func() string { return uuid.NewString() },
	}
}

// Sign returns the full header set for a request. Timestamp and nonce are
// freshly generated on every call; a retry of the same logical request must
// call Sign again.
func (s *Signer) Sign(method, pathWithQuery, body string) http.Header {
	ts := fmt.Sprintf("%d", s.now().Unix())
	nonce := s.nonce()

	headerLine := s.headerLine(ts, nonce)
	canonical := canonicalString(method, headerLine, pathWithQuery, body)
	signature := s.sign(canonical)

	h := http.Header{}
	h.Set("AppId", s.appID)
	h.Set("SdkId", s.sdkID)
	h.Set("X-TC-Key", s.secretID)
	h.Set("X-TC-Nonce", nonce)
	h.Set("X-TC-Timestamp", ts)
	h.Set("X-TC-Signature", signature)
	h.Set("Content-Type", "application/json")
	return h
}

// headerLine builds the sorted Name=Value participant list.
func (s *Signer) headerLine(ts, nonce string) string {
	pairs := [][2]string{
		{"X-TC-Key", s.secretID},
		{"X-TC-Nonce", nonce},
		{"X-TC-Timestamp", ts},
	}
	if s.signWithSdkID {
		pairs = append(pairs, [2]string{"SdkId", s.sdkID})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+"="+p[1])
	}
	return strings.Join(parts, "&")
}

func (s *Signer) sign(canonical string) string {
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func canonicalString(method, headerLine, pathWithQuery, body string) string {
	return fmt.Sprintf("%s\n%s\n%s\n%s", method, headerLine, pathWithQuery, body)
}

// BuildQuery serializes query parameters with keys in ascending lexicographic
// order. The result is part of the signature input, so the signed string and
// the wire URI must come from the same call.
func BuildQuery(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	// Encode sorts by key; the signed string and the wire URI rely on it.
	return values.Encode()
}

package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InvalidError is returned for any webhook signature rejection: a malformed
// header, a timestamp outside the freshness window, or a digest mismatch.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid webhook signature: %s", e.Reason)
}

// Verify checks that body was signed with secret and that the sender-supplied
// timestamp is within tolerance of now.
//
// The header carries comma-separated key=value pairs, at minimum
// "t=<unix-ms>" and "v1=<signature>". The signed payload is the literal
// timestamp string, a period, then the untouched body bytes, so callers must
// pass the raw request body, never a re-serialized form.
func Verify(secret string, body []byte, header string, tolerance time.Duration) error {
	return verifyAt(secret, body, header, tolerance, time.Now())
}

func verifyAt(secret string, body []byte, header string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return &InvalidError{Reason: "missing header"}
	}

	var timestampStr, received string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "t":
			timestampStr = strings.TrimSpace(v)
		case "v1":
			received = strings.TrimSpace(v)
		}
	}
	if timestampStr == "" || received == "" {
		return &InvalidError{Reason: "malformed header"}
	}

	ms, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return &InvalidError{Reason: "malformed header"}
	}

	// Bound replay risk: a captured, validly-signed request is rejected once
	// it falls outside the freshness window. Future timestamps are equally
	// suspect.
	issued := time.UnixMilli(ms)
	if d := now.Sub(issued); d > tolerance || d < -tolerance {
		return &InvalidError{Reason: "stale or future timestamp"}
	}

	computed := Sign(secret, body, timestampStr)
	if !hmac.Equal([]byte(computed), []byte(received)) {
		return &InvalidError{Reason: "signature mismatch"}
	}

	return nil
}

// Sign computes the base64url (unpadded) HMAC-SHA256 digest over
// "<timestamp>.<body>". Exposed so tests and local tooling can produce
// valid headers; the encoding must match the sender's, install-wide.
func Sign(secret string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

package signature

import (
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "I_am_a_secret"

func signedHeader(secret string, body []byte, at time.Time) string {
	ts := strconv.FormatInt(at.UnixMilli(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, Sign(secret, body, ts))
}

func TestVerify_ValidSignature(t *testing.T) {
	now := time.Now()
	body := []byte(`{"_id":"drafts.test","_type":"product","name":"Test Product"}`)
	header := signedHeader(testSecret, body, now)

	require.NoError(t, verifyAt(testSecret, body, header, 300*time.Second, now))
}

func TestVerify_TamperedBody(t *testing.T) {
	now := time.Now()
	body := []byte(`{"_id":"abc123","price":10}`)
	header := signedHeader(testSecret, body, now)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)-2] ^= 0x01

	err := verifyAt(testSecret, tampered, header, 300*time.Second, now)
	var sigErr *InvalidError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, "signature mismatch", sigErr.Reason)
}

func TestVerify_StaleTimestamp(t *testing.T) {
	now := time.Now()
	body := []byte(`{"_id":"abc123"}`)

	// MAC is valid, but the timestamp is older than the tolerance window.
	header := signedHeader(testSecret, body, now.Add(-301*time.Second))

	err := verifyAt(testSecret, body, header, 300*time.Second, now)
	var sigErr *InvalidError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, "stale or future timestamp", sigErr.Reason)
}

func TestVerify_FutureTimestamp(t *testing.T) {
	now := time.Now()
	body := []byte(`{"_id":"abc123"}`)
	header := signedHeader(testSecret, body, now.Add(10*time.Minute))

	err := verifyAt(testSecret, body, header, 300*time.Second, now)
	var sigErr *InvalidError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, "stale or future timestamp", sigErr.Reason)
}

func TestVerify_MalformedHeaders(t *testing.T) {
	now := time.Now()
	body := []byte(`{}`)
	ts := strconv.FormatInt(now.UnixMilli(), 10)

	cases := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"missing v1", "t=" + ts},
		{"missing t", "v1=" + Sign(testSecret, body, ts)},
		{"non-numeric t", "t=notanumber,v1=" + Sign(testSecret, body, ts)},
		{"garbage", "nonsense"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := verifyAt(testSecret, body, tc.header, 300*time.Second, now)
			var sigErr *InvalidError
			assert.True(t, errors.As(err, &sigErr), "expected InvalidError, got %v", err)
		})
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	now := time.Now()
	body := []byte(`{"_id":"abc123"}`)
	header := signedHeader("other_secret", body, now)

	err := verifyAt(testSecret, body, header, 300*time.Second, now)
	var sigErr *InvalidError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, "signature mismatch", sigErr.Reason)
}

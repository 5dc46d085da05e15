package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "Relay-Signature"

// DefaultTolerance bounds accepted clock skew between the signed timestamp
// and receipt time.
const DefaultTolerance = 5 * time.Minute

var (
	ErrSignatureFormat  = errors.New("malformed signature header")
	ErrSignatureExpired = errors.New("signature timestamp outside tolerance")
	ErrSignatureInvalid = errors.New("signature mismatch")
)

// Sign computes the signature header value for a payload at the given time.
// Used by tests and by the processor simulator.
func Sign(secret string, t time.Time, payload []byte) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, computeHMAC(secret, ts, payload))
}

// VerifySignature checks a webhook payload against its signature header.
// Any failure means the event must be rejected before reading the payload.
func VerifySignature(header string, payload []byte, secret string, tolerance time.Duration, now time.Time) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}
	signedAt := time.Unix(ts, 0)
	skew := now.Sub(signedAt)
	if skew < 0 {
		skew = -skew
	}
	if skew > tolerance {
		return ErrSignatureExpired
	}
	expected := computeHMAC(secret, strconv.FormatInt(ts, 10), payload)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureInvalid
	}
	return nil
}

func parseSignatureHeader(header string) (int64, string, error) {
	var (
		ts  int64
		sig string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, "", ErrSignatureFormat
			}
			ts = parsed
		case "v1":
			sig = kv[1]
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrSignatureFormat
	}
	return ts, sig, nil
}

func computeHMAC(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

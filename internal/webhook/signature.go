package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the delivery signature: t=<unix seconds>&s=<hex>.
const SignatureHeader = "X-Inngest-Signature"

// MaxSignatureAge bounds how old a signed delivery may be.
const MaxSignatureAge = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrMalformedHeader  = errors.New("malformed signature header")
	ErrExpiredSignature = errors.New("signature timestamp outside the allowed window")
	ErrBadSignature     = errors.New("signature mismatch")
	ErrNoSigningKey     = errors.New("signing key not configured")
)

var signingKeyPrefix = regexp.MustCompile(`^signkey-\w+-`)

// Verifier checks that a delivery was signed with the shared signing key.
type Verifier struct {
	key []byte
	now func() time.Time
}

// NewVerifier accepts the key in its dashboard form ("signkey-prod-<hex>");
// the environment prefix is not part of the HMAC key.
func NewVerifier(signingKey string) *Verifier {
	key := signingKeyPrefix.ReplaceAllString(strings.TrimSpace(signingKey), "")
	return &Verifier{key: []byte(key), now: time.Now}
}

// Enabled reports whether a signing key is configured.
func (v *Verifier) Enabled() bool {
	return len(v.key) > 0
}

// Verify checks header against body. The signature is the hex HMAC-SHA256
// of body followed by the timestamp string.
func (v *Verifier) Verify(header string, body []byte) error {
	if !v.Enabled() {
		return ErrNoSigningKey
	}
	if header == "" {
		return ErrMissingSignature
	}

	values, err := url.ParseQuery(header)
	if err != nil {
		return ErrMalformedHeader
	}
	ts, sig := values.Get("t"), values.Get("s")
	if ts == "" || sig == "" {
		return ErrMalformedHeader
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrMalformedHeader
	}
	if v.now().Sub(time.Unix(unix, 0)) > MaxSignatureAge {
		return ErrExpiredSignature
	}

	if !hmac.Equal([]byte(strings.ToLower(sig)), []byte(v.sign(ts, body))) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns a header value for body at time t.
func (v *Verifier) Sign(body []byte, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return "t=" + ts + "&s=" + v.sign(ts, body)
}

func (v *Verifier) sign(ts string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	_, _ = mac.Write(body)
	_, _ = mac.Write([]byte(ts))
	return hex.EncodeToString(mac.Sum(nil))
}

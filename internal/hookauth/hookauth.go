// Package hookauth verifies the authenticity of github webhook requests.
//
// Github signs the raw request body with HMAC-SHA1 using the webhook
// secret and sends the hex digest in the X-Hub-Signature header as
// "sha1=<hexdigest>". Only the legacy sha1 scheme is supported, every
// other algorithm is rejected.
package hookauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

// HeaderName is the github webhook signature header.
const HeaderName = "X-Hub-Signature"

const supportedAlgorithm = "sha1"

const loggerName = "hookauth"

var (
	ErrMissingSignature   = errors.New("signature header is missing")
	ErrMalformedSignature = errors.New("signature header is malformed or uses an unsupported algorithm")
	ErrSignatureMismatch  = errors.New("signature does not match the request body")
)

// Verifier validates webhook signature headers against a pre-shared
// secret.
type Verifier struct {
	secret []byte
	logger *zap.Logger
}

func New(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		logger: zap.L().Named(loggerName),
	}
}

// Verify checks that signatureHeader is a valid sha1 HMAC of body.
// It returns nil if the request is authentic, otherwise one of
// ErrMissingSignature, ErrMalformedSignature or ErrSignatureMismatch.
// The digest comparison is constant-time.
func (v *Verifier) Verify(body []byte, signatureHeader string) error {
	if signatureHeader == "" {
		v.logger.Warn(
			"webhook request without signature header",
			logfields.Event("webhook_signature_missing"),
		)
		return ErrMissingSignature
	}

	algorithm, digest, found := strings.Cut(signatureHeader, "=")
	if !found || algorithm != supportedAlgorithm {
		v.logger.Warn(
			"webhook request with malformed signature header",
			logfields.Event("webhook_signature_malformed"),
			zap.String("signature_algorithm", algorithm),
		)
		return ErrMalformedSignature
	}

	mac := hmac.New(sha1.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(digest)) {
		v.logger.Warn(
			"webhook request with invalid signature",
			logfields.Event("webhook_signature_invalid"),
		)
		return ErrSignatureMismatch
	}

	return nil
}

package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
)

// Signer produces hex HMAC-SHA256 signatures so webhook receivers can check
// that a payload came from this service.
type Signer struct {
	secretKey []byte
	logger    *slog.Logger
}

func NewSigner(secretKey string, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(data)
	signature := mac.Sum(nil)
	return hex.EncodeToString(signature)
}

func (s *Signer) Verify(data []byte, signature string) (bool, error) {
	expectedSignature := s.Sign(data)

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		s.logger.Warn("Signature verification failed",
			slog.Int("payload_bytes", len(data)))
		return false, fmt.Errorf("invalid signature")
	}

	return true, nil
}

// SignPayload binds the signature to the delivery timestamp so a captured
// request cannot be replayed with a fresh timestamp header.
func (s *Signer) SignPayload(timestamp int64, body []byte) string {
	return s.Sign(signedContent(timestamp, body))
}

func (s *Signer) VerifyPayload(timestamp int64, body []byte, signature string) (bool, error) {
	return s.Verify(signedContent(timestamp, body), signature)
}

func signedContent(timestamp int64, body []byte) []byte {
	prefix := strconv.FormatInt(timestamp, 10) + "."
	return append([]byte(prefix), body...)
}

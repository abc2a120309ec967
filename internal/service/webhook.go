package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"funds_transfer/pkg/crypto"
	"net/http"
	"strconv"
	"time"
)

const (
	HeaderSignature          = "X-Signature"
	HeaderSignatureTimestamp = "X-Signature-Timestamp"
)

// HTTPWebhookService POSTs each notification as JSON to a fixed URL, signed
// with the configured secret.
type HTTPWebhookService struct {
	url    string
	client *http.Client
	signer *crypto.Signer
}

func NewHTTPWebhookService(url string, timeout time.Duration, signer *crypto.Signer) *HTTPWebhookService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPWebhookService{
		url:    url,
		client: &http.Client{Timeout: timeout},
		signer: signer,
	}
}

func (s *HTTPWebhookService) SendWebhook(ctx context.Context, msg NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FundsTransfer-Webhook/1.0")

	if s.signer != nil {
		timestamp := time.Now().Unix()
		req.Header.Set(HeaderSignatureTimestamp, strconv.FormatInt(timestamp, 10))
		req.Header.Set(HeaderSignature, s.signer.SignPayload(timestamp, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return fmt.Errorf("webhook receiver returned status %d", resp.StatusCode)
}

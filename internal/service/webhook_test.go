package service

import (
	"context"
	"encoding/json"
	"funds_transfer/pkg/crypto"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPWebhookService_SendsSignedPayload(t *testing.T) {
	signer := crypto.NewSigner("webhook-secret", nil)

	var (
		gotBody      []byte
		gotSignature string
		gotTimestamp string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotSignature = r.Header.Get(HeaderSignature)
		gotTimestamp = r.Header.Get(HeaderSignatureTimestamp)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	webhook := NewHTTPWebhookService(server.URL, time.Second, signer)
	msg := NotificationMessage{
		ID:        "n-1",
		Type:      NotificationWebhook,
		AccountID: "Id-125",
		Subject:   "Account Transfer",
		Message:   "Account Id-125 credited with amount 5 (transfer from Id-124)",
		CreatedAt: time.Now(),
	}

	require.NoError(t, webhook.SendWebhook(context.Background(), msg))

	var decoded NotificationMessage
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "Id-125", decoded.AccountID)
	assert.Equal(t, msg.Message, decoded.Message)

	timestamp, err := strconv.ParseInt(gotTimestamp, 10, 64)
	require.NoError(t, err)
	ok, err := signer.VerifyPayload(timestamp, gotBody, gotSignature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHTTPWebhookService_UnsignedWithoutSigner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(HeaderSignature))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := NewHTTPWebhookService(server.URL, 0, nil)

	assert.NoError(t, webhook.SendWebhook(context.Background(), NotificationMessage{AccountID: "A"}))
}

func TestHTTPWebhookService_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	webhook := NewHTTPWebhookService(server.URL, time.Second, nil)
	err := webhook.SendWebhook(context.Background(), NotificationMessage{AccountID: "A"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

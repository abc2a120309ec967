package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"funds_transfer/internal/domain"
	"funds_transfer/internal/repository/memory"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransferer struct {
	ok    bool
	err   error
	calls int
}

func (s *stubTransferer) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (bool, error) {
	s.calls++
	return s.ok, s.err
}

func newTestMux(t *testing.T, transfers Transferer) (*http.ServeMux, *memory.AccountRepository) {
	t.Helper()
	repo := memory.NewAccountRepository()
	handler := NewAPIHandler(repo, transfers, time.Second, nil)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux, repo
}

func doJSON(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestCreateAccountHandler(t *testing.T) {
	mux, repo := newTestMux(t, &stubTransferer{})

	w := doJSON(t, mux, http.MethodPost, "/v1/accounts", `{"account_id":"Id-124","balance":"1000.50"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var snapshot domain.AccountSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Equal(t, "Id-124", snapshot.ID)
	assert.True(t, snapshot.Balance.Equal(decimal.RequireFromString("1000.50")))

	_, err := repo.GetByID(context.Background(), "Id-124")
	assert.NoError(t, err)
}

func TestCreateAccountHandler_Duplicate(t *testing.T) {
	mux, _ := newTestMux(t, &stubTransferer{})

	require.Equal(t, http.StatusCreated, doJSON(t, mux, http.MethodPost, "/v1/accounts", `{"account_id":"Id-123","balance":0}`).Code)
	w := doJSON(t, mux, http.MethodPost, "/v1/accounts", `{"account_id":"Id-123","balance":0}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "DUPLICATE_ACCOUNT", resp.Code)
	assert.Equal(t, "Account id Id-123 already exists", resp.Error)
}

func TestCreateAccountHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"account_id":`, "INVALID_REQUEST"},
		{"missing id", `{"balance":"10"}`, "VALIDATION_ERROR"},
		{"negative balance", `{"account_id":"A","balance":"-1"}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newTestMux(t, &stubTransferer{})

			w := doJSON(t, mux, http.MethodPost, "/v1/accounts", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestGetAccountHandler(t *testing.T) {
	mux, repo := newTestMux(t, &stubTransferer{})
	require.NoError(t, repo.Create(context.Background(), domain.NewAccount("Id-125", decimal.NewFromInt(42))))

	w := doJSON(t, mux, http.MethodGet, "/v1/accounts/Id-125", "")

	require.Equal(t, http.StatusOK, w.Code)
	var snapshot domain.AccountSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.True(t, snapshot.Balance.Equal(decimal.NewFromInt(42)))
}

func TestGetAccountHandler_NotFound(t *testing.T) {
	mux, _ := newTestMux(t, &stubTransferer{})

	w := doJSON(t, mux, http.MethodGet, "/v1/accounts/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestListAccountsHandler(t *testing.T) {
	mux, repo := newTestMux(t, &stubTransferer{})
	for _, id := range []string{"b", "a"} {
		require.NoError(t, repo.Create(context.Background(), domain.NewAccount(id, decimal.NewFromInt(1))))
	}

	w := doJSON(t, mux, http.MethodGet, "/v1/accounts", "")

	require.Equal(t, http.StatusOK, w.Code)
	var snapshots []domain.AccountSnapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshots))
	require.Len(t, snapshots, 2)
	assert.Equal(t, "a", snapshots[0].ID)
	assert.Equal(t, "b", snapshots[1].ID)
}

func TestTransferHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		ok         bool
		err        error
		wantStatus int
		wantCode   string
	}{
		{"success", true, nil, http.StatusOK, ""},
		{"not executed", false, nil, http.StatusBadRequest, "TRANSFER_REJECTED"},
		{"same account", false, fmt.Errorf("%w: %w: A", domain.ErrInvalidAccount, domain.ErrSameAccount), http.StatusBadRequest, "SAME_ACCOUNT"},
		{"invalid account", false, fmt.Errorf("%w: A", domain.ErrInvalidAccount), http.StatusNotFound, "INVALID_ACCOUNT"},
		{"insufficient funds", false, fmt.Errorf("%w: A", domain.ErrInsufficientFunds), http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{"lock timeout", false, fmt.Errorf("%w: account A", domain.ErrLockTimeout), http.StatusServiceUnavailable, "LOCK_TIMEOUT"},
		{"unexpected", false, fmt.Errorf("boom"), http.StatusInternalServerError, "PROCESSING_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubTransferer{ok: tt.ok, err: tt.err}
			mux, _ := newTestMux(t, stub)

			w := doJSON(t, mux, http.MethodPost, "/v1/accounts/transfer",
				`{"from_account_id":"A","to_account_id":"B","amount":"10"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, 1, stub.calls)
			if tt.wantCode == "" {
				var resp TransferResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.True(t, resp.Success)
				return
			}
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestTransferHandler_ValidationSkipsEngine(t *testing.T) {
	for _, body := range []string{
		`{"from_account_id":"A","to_account_id":"B","amount":"0"}`,
		`{"from_account_id":"A","to_account_id":"B","amount":"-3"}`,
		`{"from_account_id":"","to_account_id":"B","amount":"1"}`,
	} {
		stub := &stubTransferer{}
		mux, _ := newTestMux(t, stub)

		w := doJSON(t, mux, http.MethodPost, "/v1/accounts/transfer", body)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Zero(t, stub.calls, body)
	}
}

func TestHealthCheckHandler(t *testing.T) {
	mux, _ := newTestMux(t, &stubTransferer{})

	w := doJSON(t, mux, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

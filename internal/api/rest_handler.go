package api

import (
	"context"
	"encoding/json"
	"errors"
	"funds_transfer/internal/domain"
	"funds_transfer/internal/repository"
	"funds_transfer/pkg/validator"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Transferer is the part of the transfer engine the HTTP layer needs.
type Transferer interface {
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (bool, error)
}

type APIHandler struct {
	accounts       repository.AccountRepository
	transfers      Transferer
	validator      *validator.RequestValidator
	logger         *slog.Logger
	requestTimeout time.Duration
	retryAfter     time.Duration
}

func NewAPIHandler(
	accounts repository.AccountRepository,
	transfers Transferer,
	requestTimeout time.Duration,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return &APIHandler{
		accounts:       accounts,
		transfers:      transfers,
		validator:      validator.NewRequestValidator(),
		logger:         logger,
		requestTimeout: requestTimeout,
		retryAfter:     time.Second,
	}
}

type CreateAccountRequest struct {
	AccountID string          `json:"account_id" validate:"required,max=64"`
	Balance   decimal.Decimal `json:"balance" validate:"gte=0"`
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" validate:"required,max=64"`
	ToAccountID   string          `json:"to_account_id" validate:"required,max=64"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
}

type TransferResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *APIHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	account := domain.NewAccount(req.AccountID, req.Balance)
	if err := h.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			h.sendError(w, "Account id "+req.AccountID+" already exists", http.StatusBadRequest, "DUPLICATE_ACCOUNT")
			return
		}
		h.sendError(w, "Failed to create account", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.logger.InfoContext(ctx, "Account created",
		slog.String("account_id", req.AccountID),
		slog.String("balance", req.Balance.String()))

	h.sendSnapshot(ctx, w, account, http.StatusCreated)
}

func (h *APIHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	if accountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "Account not found", http.StatusNotFound, "NOT_FOUND")
		} else {
			h.sendError(w, "Failed to get account", http.StatusInternalServerError, "SERVER_ERROR")
		}
		return
	}

	h.sendSnapshot(ctx, w, account, http.StatusOK)
}

func (h *APIHandler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	accounts, err := h.accounts.List(ctx)
	if err != nil {
		h.sendError(w, "Failed to list accounts", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	snapshots := make([]domain.AccountSnapshot, 0, len(accounts))
	for _, account := range accounts {
		snapshot, err := account.Snapshot(ctx)
		if err != nil {
			h.sendError(w, "Account is busy, try again", http.StatusServiceUnavailable, "ACCOUNT_BUSY")
			return
		}
		snapshots = append(snapshots, snapshot)
	}

	h.sendJSON(w, snapshots, http.StatusOK)
}

func (h *APIHandler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	ok, err := h.transfers.Transfer(ctx, req.FromAccountID, req.ToAccountID, req.Amount)
	switch {
	case err == nil && ok:
		h.sendJSON(w, TransferResponse{Success: true, Message: "Transfer completed successfully"}, http.StatusOK)
	case err == nil:
		h.sendError(w, "Transfer was not executed", http.StatusBadRequest, "TRANSFER_REJECTED")
	case errors.Is(err, domain.ErrSameAccount):
		h.sendError(w, err.Error(), http.StatusBadRequest, "SAME_ACCOUNT")
	case errors.Is(err, domain.ErrInvalidAccount):
		h.sendError(w, err.Error(), http.StatusNotFound, "INVALID_ACCOUNT")
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.sendError(w, err.Error(), http.StatusPaymentRequired, "INSUFFICIENT_FUNDS")
	case domain.IsRetryable(err):
		w.Header().Set("Retry-After", strconv.Itoa(int(h.retryAfter.Seconds())))
		h.sendError(w, "Accounts are busy, try again", http.StatusServiceUnavailable, "LOCK_TIMEOUT")
	default:
		h.logger.ErrorContext(ctx, "Transfer failed",
			slog.String("error", err.Error()),
			slog.String("from_account", req.FromAccountID),
			slog.String("to_account", req.ToAccountID))
		h.sendError(w, "Transfer failed", http.StatusInternalServerError, "PROCESSING_ERROR")
	}
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) sendSnapshot(ctx context.Context, w http.ResponseWriter, account *domain.Account, statusCode int) {
	snapshot, err := account.Snapshot(ctx)
	if err != nil {
		h.sendError(w, "Account is busy, try again", http.StatusServiceUnavailable, "ACCOUNT_BUSY")
		return
	}
	h.sendJSON(w, snapshot, statusCode)
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/accounts", h.CreateAccountHandler)
	mux.HandleFunc("GET /v1/accounts", h.ListAccountsHandler)
	mux.HandleFunc("GET /v1/accounts/{id}", h.GetAccountHandler)
	mux.HandleFunc("POST /v1/accounts/transfer", h.TransferHandler)
	mux.HandleFunc("GET /api/health", h.HealthCheckHandler)
}

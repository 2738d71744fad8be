// Package acctsvc is the mock core-banking service. It owns the account
// ledger and exposes the three operations the assistant's action path calls.
package acctsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/covebank/teller/internal/ledger"
)

// Service is the HTTP server for the mock account API.
type Service struct {
	store  *ledger.Store
	host   string
	port   int
	logger *zap.Logger
	server *http.Server
}

// NewService creates the service with the given dependencies.
func NewService(store *ledger.Store, host string, port int, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		host:   host,
		port:   port,
		logger: logger,
	}
}

// Handler returns the service's routes. Exposed separately from Start so
// tests can mount the service on httptest without binding a port.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/block_card", s.handleBlockCard)
	r.Post("/raise_dispute", s.handleRaiseDispute)
	r.Post("/get_balance", s.handleGetBalance)
	r.Get("/accounts/{id}", s.handleGetAccount)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Service) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting account service", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Service) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type blockCardRequest struct {
	AccountID string `json:"account_id"`
	CardLast4 string `json:"card_last4"`
	Reason    string `json:"reason"`
}

func (s *Service) handleBlockCard(w http.ResponseWriter, r *http.Request) {
	var req blockCardRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" || req.CardLast4 == "" {
		s.respondError(w, http.StatusBadRequest, "account_id and card_last4 are required")
		return
	}
	s.logger.Debug("block card request", zap.String("account_id", req.AccountID), zap.String("card_last4", req.CardLast4))
	err := s.store.BlockCard(r.Context(), req.AccountID, req.CardLast4)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		s.respondError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, ledger.ErrCardNotFound):
		s.respondError(w, http.StatusNotFound, "Card not found")
	case err != nil:
		s.logger.Error("block card failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "card_last4": req.CardLast4})
	}
}

type disputeRequest struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

func (s *Service) handleRaiseDispute(w http.ResponseWriter, r *http.Request) {
	var req disputeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" || req.TransactionID == "" {
		s.respondError(w, http.StatusBadRequest, "account_id and transaction_id are required")
		return
	}
	disputeID := uuid.New().String()
	s.logger.Debug("raise dispute request", zap.String("account_id", req.AccountID), zap.String("dispute_id", disputeID))
	if _, err := s.store.CreateDispute(r.Context(), disputeID, req.AccountID, req.TransactionID, req.Reason); err != nil {
		s.logger.Error("raise dispute failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "dispute_id": disputeID})
}

type balanceRequest struct {
	AccountID string `json:"account_id"`
}

func (s *Service) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" {
		s.respondError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	balance, err := s.store.GetBalance(r.Context(), req.AccountID)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		s.respondError(w, http.StatusNotFound, "Account not found")
	case err != nil:
		s.logger.Error("get balance failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "balance": balance})
	}
}

func (s *Service) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	acct, err := s.store.GetAccount(r.Context(), id)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		s.respondError(w, http.StatusNotFound, "Account not found")
	case err != nil:
		s.logger.Error("get account failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusOK, acct)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

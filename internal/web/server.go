// Package web is the thin request-routing layer over the account engine.
// It decodes parameters, invokes the engine and encodes JSON; all business
// logic lives behind it.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/finwald/ledgerd/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the engine surface the server routes requests to.
type Ledger interface {
	Deposit(ctx context.Context, identity string, amount decimal.Decimal) error
	Withdraw(ctx context.Context, identity string, amount decimal.Decimal) error
	Balance(ctx context.Context, identity string) (decimal.Decimal, error)
	BalanceAt(ctx context.Context, identity string, asOf time.Time) (decimal.Decimal, error)
	Recent(ctx context.Context, identity string) ([]domain.RecentTransaction, error)
}

// Server exposes the account operations over HTTP.
type Server struct {
	Addr   string
	Ledger Ledger
	logger *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, ledger Ledger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, Ledger: ledger, logger: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Route("/accounts/{id}", func(r chi.Router) {
		r.Post("/deposit", s.handleDeposit)
		r.Post("/withdraw", s.handleWithdraw)
		r.Get("/balance", s.handleBalance)
		r.Get("/recent", s.handleRecent)
	})
	return r
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.Addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleWrite(w, r, s.Ledger.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleWrite(w, r, s.Ledger.Withdraw)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request, op func(context.Context, string, decimal.Decimal) error) {
	identity := chi.URLParam(r, "id")

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request body"))
		return
	}

	if err := op(r.Context(), identity, req.Amount); err != nil {
		s.writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "id")

	var (
		balance decimal.Decimal
		err     error
	)
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr != nil {
			s.writeError(w, http.StatusBadRequest, errors.Wrap(parseErr, "parse as_of"))
			return
		}
		balance, err = s.Ledger.BalanceAt(r.Context(), identity, asOf)
	} else {
		balance, err = s.Ledger.Balance(r.Context(), identity)
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "id")

	transactions, err := s.Ledger.Recent(r.Context(), identity)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if transactions == nil {
		transactions = []domain.RecentTransaction{}
	}

	s.writeJSON(w, http.StatusOK, map[string][]domain.RecentTransaction{"transactions": transactions})
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentity), errors.Is(err, domain.ErrNegativeAmount):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrConcurrencyConflict):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrLogUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

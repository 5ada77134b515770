package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/integrations/index"
)

const (
	defaultMaxBodyBytes = 1 << 20
	shutdownTimeout     = 10 * time.Second
)

// Ledger is the part of the runtime the API reads and submits to.
type Ledger interface {
	Account(addr crypto.Address) (*types.StoredAccount, error)
	Execute(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Simulate(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Clock() runtime.Clock
	Rent() runtime.Rent
}

// History answers settlement queries. The index package implements it.
type History interface {
	Settlements(ctx context.Context, f index.Filter) ([]index.Settlement, error)
	Totals(ctx context.Context, f index.Filter) (index.Totals, error)
	Registrations(ctx context.Context, employer crypto.Address) ([]index.Registration, error)
}

type Config struct {
	// ProgramID is the deployed shift program.
	ProgramID         crypto.Address
	RequestsPerMinute float64
	Burst             int
	MaxBodyBytes      int64
	// History is optional; without it the history routes answer 503.
	History History
	Logger  *slog.Logger
}

type Server struct {
	ledger    Ledger
	history   History
	programID crypto.Address
	limiter   *RateLimiter
	maxBody   int64
	logger    *slog.Logger

	serverMu   sync.Mutex
	httpServer *http.Server
}

func NewServer(ledger Ledger, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Server{
		ledger:    ledger,
		history:   cfg.History,
		programID: cfg.ProgramID,
		limiter:   NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst),
		maxBody:   maxBody,
		logger:    logger.With("component", "rpc"),
	}
}

// Handler returns the routed API wrapped in an otelhttp server span.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(observe(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware)
		v1.Get("/slot", s.handleSlot)
		v1.Get("/program", s.handleProgram)
		v1.Get("/rent", s.handleRent)
		v1.Get("/accounts/{address}", s.handleAccount)
		v1.Get("/mint-authority", s.handleMintAuthority)
		v1.Get("/employers/{address}", s.handleEmployer)
		v1.Get("/employers/{address}/employees", s.handleRegistrations)
		v1.Get("/employees/{address}", s.handleEmployee)
		v1.Get("/shifts/{address}", s.handleShift)
		v1.Get("/shifts/{address}/settlements", s.handleSettlements)
		v1.Get("/owners/{address}/totals", s.handleTotals)
		v1.Post("/transactions", s.handleSubmit)
	})
	return otelhttp.NewHandler(r, "shiftchain.rpc")
}

// Serve answers requests on listener until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	s.logger.Info("rpc server listening", "listen", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// ListenAndServe binds addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

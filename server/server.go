package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vaultbank/application"
	"vaultbank/domain"
	"vaultbank/infrastructure/oracle"
)

// Server is the HTTP facade over the bank and admin surfaces. Mutating
// requests run one at a time under opMu, so the bank's reentrancy latch only
// fires on genuine nested invocation.
type Server struct {
	bank     *application.Bank
	admin    *application.Admin
	decimals *domain.DecimalBook
	registry *prometheus.Registry
	log      zerolog.Logger
	router   *mux.Router

	opMu sync.Mutex
}

func New(bank *application.Bank, admin *application.Admin, decimals *domain.DecimalBook, registry *prometheus.Registry, log zerolog.Logger) *Server {
	s := &Server{
		bank:     bank,
		admin:    admin,
		decimals: decimals,
		registry: registry,
		log:      log,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/deposit", s.handleDeposit).Methods(http.MethodPost)
	v1.HandleFunc("/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	v1.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	adm := v1.PathPrefix("/admin").Subrouter()
	adm.HandleFunc("/feeds", s.handleAddFeed).Methods(http.MethodPost)
	adm.HandleFunc("/capacity", s.handleSetCapacity).Methods(http.MethodPost)
	adm.HandleFunc("/threshold", s.handleSetThreshold).Methods(http.MethodPost)
	adm.HandleFunc("/admins", s.handleAdmins).Methods(http.MethodPost)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type depositRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
	Sent   string `json:"sent"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sent := decimal.Zero
	if req.Sent != "" {
		if sent, err = parseAmount(req.Sent); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	s.opMu.Lock()
	usd, err := s.bank.Deposit(r.Context(), req.User, domain.Asset(req.Asset), amount, sent)
	s.opMu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"usd_value": usd.String()})
}

type withdrawRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.opMu.Lock()
	usd, err := s.bank.Withdraw(r.Context(), req.User, domain.Asset(req.Asset), amount)
	s.opMu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"usd_value": usd.String()})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	asset := r.URL.Query().Get("asset")
	bal := s.bank.Balance(user, domain.Asset(asset))
	writeJSON(w, http.StatusOK, map[string]string{"user": user, "asset": asset, "balance": bal.String()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bank.Stats())
}

type addFeedRequest struct {
	Caller   string `json:"caller"`
	Asset    string `json:"asset"`
	URL      string `json:"url"`
	Decimals int32  `json:"decimals"`
}

func (s *Server) handleAddFeed(w http.ResponseWriter, r *http.Request) {
	var req addFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	asset := domain.Asset(req.Asset)

	s.opMu.Lock()
	err := s.admin.AddFeed(req.Caller, asset, oracle.NewHTTPFeed(req.URL, 10*time.Second))
	if err == nil && !asset.IsNative() {
		s.decimals.Set(asset, req.Decimals)
	}
	s.opMu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": req.Asset})
}

type setCapacityRequest struct {
	Caller   string `json:"caller"`
	Capacity string `json:"capacity"`
}

func (s *Server) handleSetCapacity(w http.ResponseWriter, r *http.Request) {
	var req setCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	capacity, err := parseAmount(req.Capacity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.opMu.Lock()
	err = s.admin.SetBankCapacity(req.Caller, capacity)
	s.opMu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"capacity": capacity.String()})
}

type setThresholdRequest struct {
	Caller    string `json:"caller"`
	Threshold string `json:"threshold"`
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req setThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	threshold, err := parseAmount(req.Threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.opMu.Lock()
	err = s.admin.SetWithdrawalThreshold(req.Caller, threshold)
	s.opMu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"threshold": threshold.String()})
}

type adminsRequest struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
	Action string `json:"action"` // grant or revoke
}

func (s *Server) handleAdmins(w http.ResponseWriter, r *http.Request) {
	var req adminsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.opMu.Lock()
	var err error
	switch req.Action {
	case "grant":
		err = s.admin.GrantAdmin(req.Caller, req.Target)
	case "revoke":
		err = s.admin.RevokeAdmin(req.Caller, req.Target)
	default:
		err = errors.New("action must be grant or revoke")
	}
	s.opMu.Unlock()
	if err != nil {
		status := statusFor(err)
		if !errors.Is(err, domain.ErrNotAuthorized) && status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"target": req.Target, "action": req.Action})
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// statusFor maps the operation error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrUnsupportedDecimals):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDepositRejected),
		errors.Is(err, domain.ErrWithdrawalRejected),
		errors.Is(err, domain.ErrInvalidBankCapacity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOracleUnavailable),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrStalePrice):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrReentrantCall):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package http

import (
	"net/http"

	"tourledger-backend/internal/security"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every route by name; the name is the key into
// config.RouteSecurityConfig.
func NewRouter(h *Handler, tm security.TokenManager, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware, NewAuthMiddleware(tm).Middleware)

	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet).Name("Healthz")
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet).Name("Metrics")
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/wallets/{walletID}/balance", h.GetBalance).Methods(http.MethodGet).Name("GetBalance")
	api.HandleFunc("/wallets/{walletID}/transactions", h.ListTransactions).Methods(http.MethodGet).Name("ListTransactions")
	api.HandleFunc("/wallets/{walletID}/adjustments", h.ApplyAdjustment).Methods(http.MethodPost).Name("ApplyAdjustment")
	api.HandleFunc("/wallets/{walletID}/credit-limit", h.SetCreditLimit).Methods(http.MethodPut).Name("SetCreditLimit")
	api.HandleFunc("/wallets/{walletID}/withdrawals", h.RequestWithdrawal).Methods(http.MethodPost).Name("RequestWithdrawal")
	api.HandleFunc("/wallets/{walletID}/reconcile", h.ReconcileWallet).Methods(http.MethodPost).Name("ReconcileWallet")
	api.HandleFunc("/earnings", h.RecordEarning).Methods(http.MethodPost).Name("RecordEarning")

	api.HandleFunc("/withdrawals/pending", h.ListPendingWithdrawals).Methods(http.MethodGet).Name("ListPendingWithdrawals")
	api.HandleFunc("/withdrawals/{requestID}/resolve", h.ResolveWithdrawal).Methods(http.MethodPost).Name("ResolveWithdrawal")

	api.HandleFunc("/refunds/calculate", h.CalculateRefund).Methods(http.MethodPost).Name("CalculateRefund")
	api.HandleFunc("/refunds", h.CreateRefund).Methods(http.MethodPost).Name("CreateRefund")
	api.HandleFunc("/refunds/{refundID}", h.GetRefund).Methods(http.MethodGet).Name("GetRefund")
	api.HandleFunc("/refunds/{refundID}/process", h.ProcessRefund).Methods(http.MethodPost).Name("ProcessRefund")

	return router
}

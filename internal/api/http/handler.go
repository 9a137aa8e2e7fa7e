package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourledger-backend/internal/config"
	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/service"

	"github.com/gorilla/mux"
)

var (
	errUnauthenticated = errors.New("authentication required")
	errNotOwner        = errors.New("wallet is not accessible to this caller")
)

// Pinger reports store health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	balances    service.BalanceService
	withdrawals service.WithdrawalService
	refunds     service.RefundService
	reconciler  service.ReconciliationService
	pinger      Pinger
}

func NewHandler(
	balances service.BalanceService,
	withdrawals service.WithdrawalService,
	refunds service.RefundService,
	reconciler service.ReconciliationService,
	pinger Pinger,
) *Handler {
	return &Handler{
		balances:    balances,
		withdrawals: withdrawals,
		refunds:     refunds,
		reconciler:  reconciler,
		pinger:      pinger,
	}
}

// authorizeWallet lets finance staff and service callers through and
// otherwise requires the token's owner to match the wallet's owner. Other
// callers get 403 for unknown wallets too, so IDs cannot be probed.
func (h *Handler) authorizeWallet(r *http.Request, walletID string) (*domain.Wallet, int, error) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		return nil, http.StatusUnauthorized, errUnauthenticated
	}
	privileged := claims.HasRole(config.RoleFinance) || claims.HasRole(config.RoleSystem)

	wallet, err := h.balances.GetWallet(r.Context(), walletID)
	if err != nil {
		if !privileged && errors.Is(err, domain.ErrNotFound) {
			return nil, http.StatusForbidden, errNotOwner
		}
		status, _ := statusFor(err)
		return nil, status, err
	}
	if privileged {
		return wallet, 0, nil
	}
	if claims.OwnerType == string(wallet.OwnerType) && claims.OwnerID == wallet.OwnerID {
		return wallet, 0, nil
	}
	return nil, http.StatusForbidden, errNotOwner
}

func actorFrom(r *http.Request) *string {
	claims := ClaimsFromContext(r.Context())
	if claims == nil || claims.ActorID() == "" {
		return nil
	}
	id := claims.ActorID()
	return &id
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func queryInt32(r *http.Request, name string, def int32) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return int32(v), nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}

// queryList accepts repeated and comma separated values.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package http

import (
	"net/http"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/service"
)

type earningRequest struct {
	OwnerType     domain.OwnerType `json:"owner_type"`
	OwnerID       string           `json:"owner_id"`
	Amount        int64            `json:"amount"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   string           `json:"reference_id"`
	Description   string           `json:"description"`
}

type adjustmentRequest struct {
	Amount        int64                  `json:"amount"`
	Type          domain.TransactionType `json:"type"`
	Reason        string                 `json:"reason"`
	ReferenceType string                 `json:"reference_type"`
	ReferenceID   string                 `json:"reference_id"`
}

type creditLimitRequest struct {
	CreditLimit int64 `json:"credit_limit"`
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	walletID := pathVar(r, "walletID")
	if _, status, err := h.authorizeWallet(r, walletID); err != nil {
		h.writeAuthzError(w, r, status, err)
		return
	}
	view, err := h.balances.GetBalance(r.Context(), walletID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	walletID := pathVar(r, "walletID")
	if _, status, err := h.authorizeWallet(r, walletID); err != nil {
		h.writeAuthzError(w, r, status, err)
		return
	}

	filter := domain.TransactionFilter{WalletID: walletID}
	var err error
	if filter.Page, err = queryInt32(r, "page", 1); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.PageSize, err = queryInt32(r, "page_size", 50); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.From, err = queryTime(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}
	for _, t := range queryList(r, "type") {
		filter.Types = append(filter.Types, domain.TransactionType(t))
	}
	for _, s := range queryList(r, "status") {
		filter.Statuses = append(filter.Statuses, domain.TransactionStatus(s))
	}

	txs, total, err := h.balances.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.Normalize()
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, page[domain.Transaction]{Items: txs, Total: total, Page: filter.Page, PageSize: filter.PageSize})
}

func (h *Handler) RecordEarning(w http.ResponseWriter, r *http.Request) {
	var req earningRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.balances.RecordEarning(r.Context(), service.EarningInput{
		OwnerType:   req.OwnerType,
		OwnerID:     req.OwnerID,
		Amount:      req.Amount,
		Reference:   domain.Reference{Type: req.ReferenceType, ID: req.ReferenceID},
		ActorID:     actorFrom(r),
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) ApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.balances.ApplyAdjustment(r.Context(), service.AdjustmentInput{
		WalletID:  pathVar(r, "walletID"),
		Amount:    req.Amount,
		Type:      req.Type,
		Reason:    req.Reason,
		Reference: domain.Reference{Type: req.ReferenceType, ID: req.ReferenceID},
		ActorID:   actorFrom(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) SetCreditLimit(w http.ResponseWriter, r *http.Request) {
	var req creditLimitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.balances.SetCreditLimit(r.Context(), pathVar(r, "walletID"), req.CreditLimit, actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *Handler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	res, err := h.reconciler.ReconcileWallet(r.Context(), pathVar(r, "walletID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeAuthzError(w http.ResponseWriter, r *http.Request, status int, err error) {
	switch status {
	case http.StatusUnauthorized:
		writeJSONError(w, status, "unauthenticated", err.Error())
	case http.StatusForbidden:
		writeJSONError(w, status, "forbidden", err.Error())
	default:
		writeError(w, r, err)
	}
}

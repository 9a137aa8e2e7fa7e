package http

import (
	"net/http"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/service"
)

type withdrawalRequest struct {
	Amount      int64                    `json:"amount"`
	Destination domain.PayoutDestination `json:"destination"`
}

type resolveRequest struct {
	Decision service.Decision `json:"decision"`
	Reason   string           `json:"reason"`
}

// RequestWithdrawal is owner-only: finance staff resolve requests, they do
// not raise them on someone's behalf.
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	walletID := pathVar(r, "walletID")
	wallet, status, err := h.authorizeWallet(r, walletID)
	if err != nil {
		h.writeAuthzError(w, r, status, err)
		return
	}
	claims := ClaimsFromContext(r.Context())
	if claims.OwnerType != string(wallet.OwnerType) || claims.OwnerID != wallet.OwnerID {
		writeJSONError(w, http.StatusForbidden, "forbidden", errNotOwner.Error())
		return
	}

	var req withdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.withdrawals.RequestWithdrawal(r.Context(), service.WithdrawalInput{
		WalletID:    walletID,
		Amount:      req.Amount,
		Destination: req.Destination,
		ActorID:     actorFrom(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) ListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	pageNum, err := queryInt32(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt32(r, "page_size", 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, total, err := h.withdrawals.ListPendingWithdrawals(r.Context(), pageNum, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.TransactionFilter{Page: pageNum, PageSize: pageSize}
	filter.Normalize()
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, page[domain.Transaction]{Items: txs, Total: total, Page: filter.Page, PageSize: filter.PageSize})
}

func (h *Handler) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	approver := ""
	if actor := actorFrom(r); actor != nil {
		approver = *actor
	}
	tx, err := h.withdrawals.ResolveWithdrawal(r.Context(), service.ResolveInput{
		RequestID:  pathVar(r, "requestID"),
		Decision:   req.Decision,
		ApproverID: approver,
		Reason:     req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/wrap-near/guest-relayer/internal/core/application"
)

const (
	TxStorageDeposit = "storage_deposit"
	TxAddKey         = "add_key"
	TxDeleteKey      = "delete_key"
	TxAddGuest       = "add_guest"
)

// TxRecorder counts the transactions the relayer signed and paid for.
type TxRecorder interface {
	RecordTx(kind string, count int)
}

type handler struct {
	svc application.Service
	txs TxRecorder
}

func NewHandler(svc application.Service, txs TxRecorder) *handler {
	return &handler{svc, txs}
}

func (h *handler) Hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(h.svc.Hello())); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func (h *handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetInfo(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{
		ContractName:    info.ContractName,
		GuestsAccountId: info.GuestsAccountId,
		ContractKey:     info.ContractKey,
		GuestsKey:       info.GuestsKey,
		ChangeMethods:   info.ChangeMethods,
		GuestAllowance:  info.GuestAllowance,
		BlockHeight:     info.BlockHeight,
	})
}

func (h *handler) HasAccessKey(w http.ResponseWriter, r *http.Request) {
	var body signedRequest
	if err := parseBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	req, err := parseSignedRequest(body)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.svc.VerifyAccessKey(r.Context(), req); err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *handler) StorageDeposit(w http.ResponseWriter, r *http.Request) {
	var body storageDepositRequest
	if err := parseBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	req, err := parseSignedRequest(body.signedRequest)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	txHash, err := h.svc.StorageDeposit(r.Context(), application.StorageDepositRequest{
		SignedRequest:     req,
		ImplicitAccountId: body.ImplicitAccountId,
	})
	if err != nil {
		writeError(w, err, http.StatusForbidden)
		return
	}
	h.recordTx(TxStorageDeposit, 1)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Result: txHash})
}

func (h *handler) AddKey(w http.ResponseWriter, r *http.Request) {
	var body addKeyRequest
	if err := parseBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	if len(body.PublicKey) <= 0 {
		writeBadRequest(w, errMissingPublicKey)
		return
	}

	txHash, err := h.svc.AddKey(r.Context(), body.PublicKey)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.recordTx(TxAddKey, 1)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Result: txHash})
}

func (h *handler) DeleteAccessKeys(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteAccessKeys(r.Context())
	h.recordTx(TxDeleteKey, len(deleted))
	if err != nil {
		writeError(w, err, http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Result: deleted})
}

func (h *handler) AddGuest(w http.ResponseWriter, r *http.Request) {
	var body addGuestRequest
	if err := parseBody(r, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	accountId, publicKey, err := parseAddGuest(body)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	result, err := h.svc.AddGuest(r.Context(), accountId, publicKey)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	h.recordTx(TxAddGuest, 2)
	writeJSON(w, http.StatusOK, map[string]string{
		"add_guest": result.AddGuest,
		"addKey":    result.AddKey,
	})
}

func (h *handler) GetGuest(w http.ResponseWriter, r *http.Request) {
	guest, err := h.svc.GuestStatus(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toGuestResponse(guest))
}

func (h *handler) recordTx(kind string, count int) {
	if h.txs != nil && count > 0 {
		h.txs.RecordTx(kind, count)
	}
}

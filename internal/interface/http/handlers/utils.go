package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/wrap-near/guest-relayer/internal/core/application"
	"github.com/wrap-near/guest-relayer/internal/core/domain"
)

type successResponse struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type guestResponse struct {
	AccountId         string `json:"account_id"`
	PublicKey         string `json:"public_key"`
	Stage             string `json:"stage"`
	TokenBalance      string `json:"token_balance,omitempty"`
	UpgradedPublicKey string `json:"upgraded_public_key,omitempty"`
	Failed            bool   `json:"failed"`
	FailReason        string `json:"fail_reason,omitempty"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

type infoResponse struct {
	ContractName    string   `json:"contract_name"`
	GuestsAccountId string   `json:"guests_account_id"`
	ContractKey     string   `json:"contract_key"`
	GuestsKey       string   `json:"guests_key,omitempty"`
	ChangeMethods   []string `json:"change_methods"`
	GuestAllowance  string   `json:"guest_allowance"`
	BlockHeight     uint64   `json:"block_height"`
}

func toGuestResponse(g *domain.Guest) guestResponse {
	return guestResponse{
		AccountId:         g.AccountId,
		PublicKey:         g.PublicKey,
		Stage:             domain.GuestStage(g.Stage.Code).String(),
		TokenBalance:      g.TokenBalance,
		UpgradedPublicKey: g.UpgradedPublicKey,
		Failed:            g.IsFailed(),
		FailReason:        g.FailReason,
		CreatedAt:         g.CreatedAt,
		UpdatedAt:         g.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
}

// writeError maps application errors to status codes. Unknown errors are
// returned with the given fallback status.
func writeError(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, application.ErrUnauthorized),
		errors.Is(err, application.ErrStaleBlock):
		writeJSON(w, http.StatusUnauthorized, errorResponse{err.Error()})
	case errors.Is(err, application.ErrKeyAlreadyAdded):
		writeJSON(w, http.StatusForbidden, errorResponse{application.ErrKeyAlreadyAdded.Error()})
	case errors.Is(err, application.ErrRegistration):
		writeJSON(w, http.StatusForbidden, errorResponse{application.ErrRegistration.Error()})
	case errors.Is(err, application.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
	case errors.Is(err, domain.ErrGuestNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})
	default:
		if fallback >= http.StatusInternalServerError {
			log.WithError(err).Error("request failed")
		}
		writeJSON(w, fallback, errorResponse{err.Error()})
	}
}

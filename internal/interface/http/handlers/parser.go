package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/wrap-near/guest-relayer/internal/core/application"
)

const maxBodySize = 1 << 16

// blockHeight accepts both a JSON number and a decimal string.
type blockHeight uint64

func (h *blockHeight) UnmarshalJSON(buf []byte) error {
	s := strings.Trim(string(buf), `"`)
	height, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid block number %s", s)
	}
	*h = blockHeight(height)
	return nil
}

type signedRequest struct {
	AccountId            string      `json:"accountId"`
	BlockNumber          blockHeight `json:"blockNumber"`
	BlockNumberSignature string      `json:"blockNumberSignature"`
}

type storageDepositRequest struct {
	signedRequest
	ImplicitAccountId string `json:"implicitAccountId"`
}

type addKeyRequest struct {
	PublicKey string `json:"publicKey"`
}

type addGuestRequest struct {
	AccountId string `json:"account_id"`
	PublicKey string `json:"public_key"`
}

func parseBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read body: %s", err)
	}
	if len(body) <= 0 {
		return fmt.Errorf("missing body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid body: %s", err)
	}
	return nil
}

func parseSignedRequest(req signedRequest) (application.SignedRequest, error) {
	if len(req.AccountId) <= 0 {
		return application.SignedRequest{}, fmt.Errorf("missing accountId")
	}
	if len(req.BlockNumberSignature) <= 0 {
		return application.SignedRequest{}, fmt.Errorf("missing blockNumberSignature")
	}
	if req.BlockNumber == 0 {
		return application.SignedRequest{}, fmt.Errorf("missing blockNumber")
	}
	return application.SignedRequest{
		AccountId:            req.AccountId,
		BlockNumber:          uint64(req.BlockNumber),
		BlockNumberSignature: req.BlockNumberSignature,
	}, nil
}

func parseAddGuest(req addGuestRequest) (string, string, error) {
	if len(req.AccountId) <= 0 {
		return "", "", fmt.Errorf("missing account_id")
	}
	if len(req.PublicKey) <= 0 {
		return "", "", fmt.Errorf("missing public_key")
	}
	return req.AccountId, req.PublicKey, nil
}

var errMissingPublicKey = fmt.Errorf("missing publicKey")

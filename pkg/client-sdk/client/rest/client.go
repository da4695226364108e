package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wrap-near/guest-relayer/pkg/client-sdk/client"
)

const defaultTimeout = 2 * time.Minute

type restClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(relayerURL string) (client.RelayerClient, error) {
	if len(relayerURL) <= 0 {
		return nil, fmt.Errorf("missing relayer url")
	}
	u, err := url.Parse(relayerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relayer url: %s", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid relayer url scheme %q", u.Scheme)
	}
	return &restClient{
		baseURL:    strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (c *restClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *restClient) GetInfo(ctx context.Context) (*client.Info, error) {
	var resp infoResponse
	if err := c.do(ctx, http.MethodGet, "/info", nil, &resp); err != nil {
		return nil, err
	}
	return &client.Info{
		ContractName:    resp.ContractName,
		GuestsAccountId: resp.GuestsAccountId,
		ContractKey:     resp.ContractKey,
		GuestsKey:       resp.GuestsKey,
		ChangeMethods:   resp.ChangeMethods,
		GuestAllowance:  resp.GuestAllowance,
		BlockHeight:     resp.BlockHeight,
	}, nil
}

func (c *restClient) HasAccessKey(ctx context.Context, req client.SignedRequest) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/has-access-key", toSignedBody(req), &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("access key not verified")
	}
	return nil
}

func (c *restClient) StorageDeposit(
	ctx context.Context, req client.SignedRequest,
) (string, error) {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/storage-deposit", toSignedBody(req), &resp); err != nil {
		return "", err
	}
	var txHash string
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &txHash); err != nil {
			return "", fmt.Errorf("invalid storage deposit result: %s", err)
		}
	}
	return txHash, nil
}

func (c *restClient) AddGuest(
	ctx context.Context, accountId, publicKey string,
) (*client.AddGuestResult, error) {
	body := addGuestRequest{accountId, publicKey}
	var resp addGuestResponse
	if err := c.do(ctx, http.MethodPost, "/add-guest", body, &resp); err != nil {
		return nil, err
	}
	return &client.AddGuestResult{
		AddGuest: resp.AddGuest,
		AddKey:   resp.AddKey,
	}, nil
}

func (c *restClient) do(
	ctx context.Context, method, path string, body, reply interface{},
) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach relayer: %w", err)
	}
	// nolint:all
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read relayer response: %s", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, buf)
	}
	if reply == nil {
		return nil
	}
	if err := json.Unmarshal(buf, reply); err != nil {
		return fmt.Errorf("invalid relayer response: %s", err)
	}
	return nil
}

func parseError(status int, body []byte) error {
	var resp errorResponse
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		msg = resp.Error
	}
	if strings.Contains(msg, client.ErrKeyAlreadyAdded.Error()) {
		return client.ErrKeyAlreadyAdded
	}
	return &client.Error{Status: status, Message: msg}
}

type signedBody struct {
	AccountId            string `json:"accountId"`
	BlockNumber          string `json:"blockNumber"`
	BlockNumberSignature string `json:"blockNumberSignature"`
	ImplicitAccountId    string `json:"implicitAccountId,omitempty"`
}

func toSignedBody(req client.SignedRequest) signedBody {
	return signedBody{
		AccountId:            req.AccountId,
		BlockNumber:          strconv.FormatUint(req.BlockNumber, 10),
		BlockNumberSignature: req.BlockNumberSignature,
		ImplicitAccountId:    req.ImplicitAccountId,
	}
}

type addGuestRequest struct {
	AccountId string `json:"account_id"`
	PublicKey string `json:"public_key"`
}

type addGuestResponse struct {
	AddGuest string `json:"add_guest"`
	AddKey   string `json:"addKey"`
}

type successResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type infoResponse struct {
	ContractName    string   `json:"contract_name"`
	GuestsAccountId string   `json:"guests_account_id"`
	ContractKey     string   `json:"contract_key"`
	GuestsKey       string   `json:"guests_key"`
	ChangeMethods   []string `json:"change_methods"`
	GuestAllowance  string   `json:"guest_allowance"`
	BlockHeight     uint64   `json:"block_height"`
}

package near

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2/json2"
)

const (
	FinalityFinal      = "final"
	FinalityOptimistic = "optimistic"

	defaultTimeout = 30 * time.Second
)

// Provider is the subset of the NEAR JSON-RPC API used to read state and
// submit transactions.
type Provider interface {
	ViewAccount(ctx context.Context, accountId string) (*AccountView, error)
	ViewAccessKey(ctx context.Context, accountId string, pubkey PublicKey) (*AccessKeyView, error)
	ViewAccessKeyList(ctx context.Context, accountId string) ([]AccessKeyInfo, error)
	CallFunction(ctx context.Context, contractId, method string, args interface{}) ([]byte, error)
	FinalBlock(ctx context.Context) (*BlockHeader, error)
	BroadcastTxCommit(ctx context.Context, tx *SignedTransaction) (*FinalExecutionOutcome, error)
}

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) ViewAccount(ctx context.Context, accountId string) (*AccountView, error) {
	var view AccountView
	if err := c.query(ctx, map[string]interface{}{
		"request_type": "view_account",
		"finality":     FinalityFinal,
		"account_id":   accountId,
	}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) ViewAccessKey(
	ctx context.Context, accountId string, pubkey PublicKey,
) (*AccessKeyView, error) {
	var view AccessKeyView
	if err := c.query(ctx, map[string]interface{}{
		"request_type": "view_access_key",
		"finality":     FinalityFinal,
		"account_id":   accountId,
		"public_key":   pubkey.String(),
	}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) ViewAccessKeyList(ctx context.Context, accountId string) ([]AccessKeyInfo, error) {
	var view struct {
		Keys []AccessKeyInfo `json:"keys"`
	}
	if err := c.query(ctx, map[string]interface{}{
		"request_type": "view_access_key_list",
		"finality":     FinalityFinal,
		"account_id":   accountId,
	}, &view); err != nil {
		return nil, err
	}
	return view.Keys, nil
}

// CallFunction runs a view method and returns its raw result, usually JSON.
func (c *Client) CallFunction(
	ctx context.Context, contractId, method string, args interface{},
) ([]byte, error) {
	rawArgs, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}

	var view struct {
		Result []int    `json:"result"`
		Logs   []string `json:"logs"`
	}
	if err := c.query(ctx, map[string]interface{}{
		"request_type": "call_function",
		"finality":     FinalityFinal,
		"account_id":   contractId,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(rawArgs),
	}, &view); err != nil {
		return nil, err
	}

	result := make([]byte, 0, len(view.Result))
	for _, b := range view.Result {
		result = append(result, byte(b))
	}
	return result, nil
}

func (c *Client) FinalBlock(ctx context.Context) (*BlockHeader, error) {
	var block struct {
		Header BlockHeader `json:"header"`
	}
	if err := c.call(ctx, "block", map[string]string{"finality": FinalityFinal}, &block); err != nil {
		return nil, err
	}
	return &block.Header, nil
}

func (c *Client) BroadcastTxCommit(
	ctx context.Context, tx *SignedTransaction,
) (*FinalExecutionOutcome, error) {
	encoded, err := tx.Base64()
	if err != nil {
		return nil, fmt.Errorf("failed to encode tx: %s", err)
	}

	var outcome FinalExecutionOutcome
	if err := c.call(ctx, "broadcast_tx_commit", []string{encoded}, &outcome); err != nil {
		return nil, err
	}
	if err := outcome.Status.err(); err != nil {
		return &outcome, err
	}
	return &outcome, nil
}

// query wraps the "query" method. Older nodes report view errors inside the
// result rather than as a JSON-RPC error, so both are handled.
func (c *Client) query(ctx context.Context, params map[string]interface{}, reply interface{}) error {
	var raw json.RawMessage
	if err := c.call(ctx, "query", params, &raw); err != nil {
		return err
	}

	var queryErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &queryErr); err == nil && len(queryErr.Error) > 0 {
		return &Error{Message: queryErr.Error}
	}
	return json.Unmarshal(raw, reply)
}

func (c *Client) call(ctx context.Context, method string, params, reply interface{}) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode request: %s", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach rpc node: %w", err)
	}
	// nolint:all
	defer resp.Body.Close()

	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		var rpcErr *json2.Error
		if errors.As(err, &rpcErr) {
			return newRPCError(rpcErr)
		}
		if errors.Is(err, json2.ErrNullResult) {
			return ErrNullResult
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("rpc node replied with status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode %s response: %s", method, err)
	}
	return nil
}

func marshalArgs(args interface{}) ([]byte, error) {
	switch a := args.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		return a, nil
	default:
		buf, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode args: %s", err)
		}
		return buf, nil
	}
}

package near

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil/base58"
)

type AccountView struct {
	Amount        string `json:"amount"`
	Locked        string `json:"locked"`
	CodeHash      string `json:"code_hash"`
	StorageUsage  uint64 `json:"storage_usage"`
	StoragePaidAt uint64 `json:"storage_paid_at"`
	BlockHeight   uint64 `json:"block_height"`
	BlockHash     string `json:"block_hash"`
}

func (v AccountView) Balance() *big.Int {
	amount, ok := new(big.Int).SetString(v.Amount, 10)
	if !ok {
		return big.NewInt(0)
	}
	return amount
}

type AccessKeyView struct {
	Nonce       uint64                  `json:"nonce"`
	Permission  AccessKeyPermissionView `json:"permission"`
	BlockHeight uint64                  `json:"block_height"`
	BlockHash   string                  `json:"block_hash"`
}

type AccessKeyInfo struct {
	PublicKey string        `json:"public_key"`
	AccessKey AccessKeyView `json:"access_key"`
}

type FunctionCallPermissionView struct {
	Allowance   *string  `json:"allowance"`
	ReceiverId  string   `json:"receiver_id"`
	MethodNames []string `json:"method_names"`
}

// AccessKeyPermissionView is either the "FullAccess" string or a
// {"FunctionCall": {...}} object on the wire.
type AccessKeyPermissionView struct {
	FullAccess   bool
	FunctionCall *FunctionCallPermissionView
}

func (p *AccessKeyPermissionView) UnmarshalJSON(buf []byte) error {
	var kind string
	if err := json.Unmarshal(buf, &kind); err == nil {
		if kind != "FullAccess" {
			return fmt.Errorf("unknown access key permission %s", kind)
		}
		p.FullAccess = true
		return nil
	}

	var obj struct {
		FunctionCall *FunctionCallPermissionView `json:"FunctionCall"`
	}
	if err := json.Unmarshal(buf, &obj); err != nil {
		return err
	}
	if obj.FunctionCall == nil {
		return fmt.Errorf("unknown access key permission %s", string(buf))
	}
	p.FunctionCall = obj.FunctionCall
	return nil
}

func (p AccessKeyPermissionView) MarshalJSON() ([]byte, error) {
	if p.FullAccess {
		return json.Marshal("FullAccess")
	}
	return json.Marshal(map[string]interface{}{"FunctionCall": p.FunctionCall})
}

type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	Timestamp uint64 `json:"timestamp"`
}

func (h BlockHeader) HashBytes() ([32]byte, error) {
	var hash [32]byte
	raw := base58.Decode(h.Hash)
	if len(raw) != len(hash) {
		return hash, fmt.Errorf("invalid block hash %s", h.Hash)
	}
	copy(hash[:], raw)
	return hash, nil
}

type ExecutionStatus struct {
	SuccessValue     *string         `json:"SuccessValue,omitempty"`
	SuccessReceiptId *string         `json:"SuccessReceiptId,omitempty"`
	Failure          json.RawMessage `json:"Failure,omitempty"`
}

func (s *ExecutionStatus) UnmarshalJSON(buf []byte) error {
	// Pending outcomes are plain strings such as "Started".
	var pending string
	if err := json.Unmarshal(buf, &pending); err == nil {
		return nil
	}

	type status ExecutionStatus
	var st status
	if err := json.Unmarshal(buf, &st); err != nil {
		return err
	}
	*s = ExecutionStatus(st)
	return nil
}

func (s ExecutionStatus) err() error {
	if len(s.Failure) <= 0 {
		return nil
	}
	return &Error{Message: "transaction failed", Data: string(s.Failure)}
}

type ExecutionOutcome struct {
	Logs        []string        `json:"logs"`
	ReceiptIds  []string        `json:"receipt_ids"`
	GasBurnt    uint64          `json:"gas_burnt"`
	TokensBurnt string          `json:"tokens_burnt"`
	Status      ExecutionStatus `json:"status"`
}

type ExecutionOutcomeWithId struct {
	Id      string           `json:"id"`
	Outcome ExecutionOutcome `json:"outcome"`
}

type FinalExecutionOutcome struct {
	Status      ExecutionStatus `json:"status"`
	Transaction struct {
		Hash       string `json:"hash"`
		SignerId   string `json:"signer_id"`
		ReceiverId string `json:"receiver_id"`
	} `json:"transaction"`
	TransactionOutcome ExecutionOutcomeWithId   `json:"transaction_outcome"`
	ReceiptsOutcome    []ExecutionOutcomeWithId `json:"receipts_outcome"`
}

// SuccessValue returns the decoded return value of the transaction, which is
// empty for methods returning nothing.
func (o *FinalExecutionOutcome) SuccessValue() ([]byte, error) {
	if o.Status.SuccessValue == nil {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*o.Status.SuccessValue)
}

func (o *FinalExecutionOutcome) Logs() []string {
	logs := append([]string{}, o.TransactionOutcome.Outcome.Logs...)
	for _, r := range o.ReceiptsOutcome {
		logs = append(logs, r.Outcome.Logs...)
	}
	return logs
}

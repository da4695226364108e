package near

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/near/borsh-go"
)

const (
	ActionCreateAccount borsh.Enum = iota
	ActionDeployContract
	ActionFunctionCall
	ActionTransfer
	ActionStake
	ActionAddKey
	ActionDeleteKey
	ActionDeleteAccount
)

const (
	PermissionFunctionCall borsh.Enum = iota
	PermissionFullAccess
)

type Transaction struct {
	SignerId   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverId string
	BlockHash  [32]byte
	Actions    []Action
}

type SignedTransaction struct {
	Transaction Transaction
	Signature   Signature
}

type Action struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  CreateAccount
	DeployContract DeployContract
	FunctionCall   FunctionCall
	Transfer       Transfer
	Stake          Stake
	AddKey         AddKey
	DeleteKey      DeleteKey
	DeleteAccount  DeleteAccount
}

type CreateAccount struct{}

type DeployContract struct {
	Code []byte
}

type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    big.Int
}

type Transfer struct {
	Deposit big.Int
}

type Stake struct {
	Stake     big.Int
	PublicKey PublicKey
}

type AddKey struct {
	PublicKey PublicKey
	AccessKey AccessKey
}

type DeleteKey struct {
	PublicKey PublicKey
}

type DeleteAccount struct {
	BeneficiaryId string
}

type AccessKey struct {
	Nonce      uint64
	Permission AccessKeyPermission
}

type AccessKeyPermission struct {
	Enum         borsh.Enum `borsh_enum:"true"`
	FunctionCall FunctionCallPermission
	FullAccess   FullAccessPermission
}

type FunctionCallPermission struct {
	Allowance   *big.Int
	ReceiverId  string
	MethodNames []string
}

type FullAccessPermission struct{}

func NewCreateAccountAction() Action {
	return Action{Enum: ActionCreateAccount}
}

func NewFunctionCallAction(method string, args []byte, gas uint64, deposit *big.Int) Action {
	return Action{
		Enum: ActionFunctionCall,
		FunctionCall: FunctionCall{
			MethodName: method,
			Args:       args,
			Gas:        gas,
			Deposit:    amountOrZero(deposit),
		},
	}
}

func NewTransferAction(deposit *big.Int) Action {
	return Action{
		Enum:     ActionTransfer,
		Transfer: Transfer{Deposit: amountOrZero(deposit)},
	}
}

func NewFullAccessKeyAction(pubkey PublicKey) Action {
	return Action{
		Enum: ActionAddKey,
		AddKey: AddKey{
			PublicKey: pubkey,
			AccessKey: AccessKey{
				Permission: AccessKeyPermission{Enum: PermissionFullAccess},
			},
		},
	}
}

// NewFunctionCallKeyAction adds a key restricted to calling methodNames on
// receiverId. A nil allowance means unlimited.
func NewFunctionCallKeyAction(
	pubkey PublicKey, receiverId string, methodNames []string, allowance *big.Int,
) Action {
	if methodNames == nil {
		methodNames = []string{}
	}
	return Action{
		Enum: ActionAddKey,
		AddKey: AddKey{
			PublicKey: pubkey,
			AccessKey: AccessKey{
				Permission: AccessKeyPermission{
					Enum: PermissionFunctionCall,
					FunctionCall: FunctionCallPermission{
						Allowance:   allowance,
						ReceiverId:  receiverId,
						MethodNames: methodNames,
					},
				},
			},
		},
	}
}

func NewDeleteKeyAction(pubkey PublicKey) Action {
	return Action{
		Enum:      ActionDeleteKey,
		DeleteKey: DeleteKey{PublicKey: pubkey},
	}
}

func NewDeleteAccountAction(beneficiaryId string) Action {
	return Action{
		Enum:          ActionDeleteAccount,
		DeleteAccount: DeleteAccount{BeneficiaryId: beneficiaryId},
	}
}

// SignTransaction signs the sha256 digest of the borsh encoded transaction and
// returns the base58 transaction hash along with the signed transaction.
func SignTransaction(tx Transaction, keyPair *KeyPair) (string, *SignedTransaction, error) {
	buf, err := borsh.Serialize(tx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to serialize tx: %s", err)
	}

	hash := sha256.Sum256(buf)
	signed := &SignedTransaction{
		Transaction: tx,
		Signature:   keyPair.Sign(hash[:]),
	}
	return base58.Encode(hash[:]), signed, nil
}

func (s *SignedTransaction) Serialize() ([]byte, error) {
	return borsh.Serialize(*s)
}

func (s *SignedTransaction) Base64() (string, error) {
	buf, err := s.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func DecodeSignedTransaction(buf []byte) (*SignedTransaction, error) {
	var tx SignedTransaction
	if err := borsh.Deserialize(&tx, buf); err != nil {
		return nil, fmt.Errorf("failed to deserialize signed tx: %s", err)
	}
	return &tx, nil
}

func amountOrZero(amount *big.Int) big.Int {
	if amount == nil {
		return *big.NewInt(0)
	}
	return *new(big.Int).Set(amount)
}

package application_test

import (
	"context"
	"math/big"

	"github.com/stretchr/testify/mock"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

type mockedProvider struct {
	mock.Mock
}

func (m *mockedProvider) ViewAccount(
	ctx context.Context, accountId string,
) (*near.AccountView, error) {
	args := m.Called(ctx, accountId)

	var res *near.AccountView
	if a := args.Get(0); a != nil {
		res = a.(*near.AccountView)
	}
	return res, args.Error(1)
}

func (m *mockedProvider) ViewAccessKey(
	ctx context.Context, accountId string, pubkey near.PublicKey,
) (*near.AccessKeyView, error) {
	args := m.Called(ctx, accountId, pubkey)

	var res *near.AccessKeyView
	if a := args.Get(0); a != nil {
		res = a.(*near.AccessKeyView)
	}
	return res, args.Error(1)
}

func (m *mockedProvider) ViewAccessKeyList(
	ctx context.Context, accountId string,
) ([]near.AccessKeyInfo, error) {
	args := m.Called(ctx, accountId)

	var res []near.AccessKeyInfo
	if a := args.Get(0); a != nil {
		res = a.([]near.AccessKeyInfo)
	}
	return res, args.Error(1)
}

func (m *mockedProvider) CallFunction(
	ctx context.Context, contractId, method string, callArgs interface{},
) ([]byte, error) {
	args := m.Called(ctx, contractId, method, callArgs)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockedProvider) FinalBlock(ctx context.Context) (*near.BlockHeader, error) {
	args := m.Called(ctx)

	var res *near.BlockHeader
	if a := args.Get(0); a != nil {
		res = a.(*near.BlockHeader)
	}
	return res, args.Error(1)
}

func (m *mockedProvider) BroadcastTxCommit(
	ctx context.Context, tx *near.SignedTransaction,
) (*near.FinalExecutionOutcome, error) {
	args := m.Called(ctx, tx)

	var res *near.FinalExecutionOutcome
	if a := args.Get(0); a != nil {
		res = a.(*near.FinalExecutionOutcome)
	}
	return res, args.Error(1)
}

type mockedSigner struct {
	mock.Mock
	id      string
	keyPair *near.KeyPair
}

func newMockedSigner(id string) *mockedSigner {
	keyPair, err := near.GenerateKeyPair()
	if err != nil {
		panic(err)
	}
	return &mockedSigner{id: id, keyPair: keyPair}
}

func (m *mockedSigner) ID() string {
	return m.id
}

func (m *mockedSigner) PublicKey() near.PublicKey {
	return m.keyPair.PublicKey()
}

func (m *mockedSigner) AccessKeys(ctx context.Context) ([]near.AccessKeyInfo, error) {
	args := m.Called(ctx)

	var res []near.AccessKeyInfo
	if a := args.Get(0); a != nil {
		res = a.([]near.AccessKeyInfo)
	}
	return res, args.Error(1)
}

func (m *mockedSigner) FunctionCall(
	ctx context.Context, contractId, method string, callArgs interface{},
	gas uint64, deposit *big.Int,
) (*near.FinalExecutionOutcome, error) {
	args := m.Called(ctx, contractId, method, callArgs, gas, deposit)
	return outcomeOrNil(args.Get(0)), args.Error(1)
}

func (m *mockedSigner) AddKey(
	ctx context.Context, pubkey near.PublicKey, contractId string,
	methodNames []string, allowance *big.Int,
) (*near.FinalExecutionOutcome, error) {
	args := m.Called(ctx, pubkey, contractId, methodNames, allowance)
	return outcomeOrNil(args.Get(0)), args.Error(1)
}

func (m *mockedSigner) DeleteKey(
	ctx context.Context, pubkey near.PublicKey,
) (*near.FinalExecutionOutcome, error) {
	args := m.Called(ctx, pubkey)
	return outcomeOrNil(args.Get(0)), args.Error(1)
}

func (m *mockedSigner) CreateAccount(
	ctx context.Context, newAccountId string, pubkey near.PublicKey, amount *big.Int,
) (*near.FinalExecutionOutcome, error) {
	args := m.Called(ctx, newAccountId, pubkey, amount)
	return outcomeOrNil(args.Get(0)), args.Error(1)
}

type mockedScheduler struct {
	mock.Mock
}

func (m *mockedScheduler) Start() {
	m.Called()
}

func (m *mockedScheduler) Stop() {
	m.Called()
}

func (m *mockedScheduler) ScheduleTask(interval int64, immediate bool, task func()) error {
	args := m.Called(interval, immediate, task)
	return args.Error(0)
}

func outcomeOrNil(v interface{}) *near.FinalExecutionOutcome {
	if v == nil {
		return nil
	}
	return v.(*near.FinalExecutionOutcome)
}

func txOutcome(hash string, value *string) *near.FinalExecutionOutcome {
	outcome := &near.FinalExecutionOutcome{}
	outcome.Transaction.Hash = hash
	outcome.Status.SuccessValue = value
	return outcome
}

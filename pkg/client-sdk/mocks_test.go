package guestsdk_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/wrap-near/guest-relayer/pkg/client-sdk/client"
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

type mockedRelayer struct {
	mock.Mock
}

func (m *mockedRelayer) GetInfo(ctx context.Context) (*client.Info, error) {
	args := m.Called(ctx)

	var res *client.Info
	if a := args.Get(0); a != nil {
		res = a.(*client.Info)
	}
	return res, args.Error(1)
}

func (m *mockedRelayer) HasAccessKey(ctx context.Context, req client.SignedRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockedRelayer) StorageDeposit(
	ctx context.Context, req client.SignedRequest,
) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockedRelayer) AddGuest(
	ctx context.Context, accountId, publicKey string,
) (*client.AddGuestResult, error) {
	args := m.Called(ctx, accountId, publicKey)

	var res *client.AddGuestResult
	if a := args.Get(0); a != nil {
		res = a.(*client.AddGuestResult)
	}
	return res, args.Error(1)
}

func (m *mockedRelayer) Close() {}

func txOutcome(hash string) *near.FinalExecutionOutcome {
	value := ""
	outcome := &near.FinalExecutionOutcome{}
	outcome.Transaction.Hash = hash
	outcome.Status.SuccessValue = &value
	return outcome
}

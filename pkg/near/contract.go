package near

import (
	"context"
	"fmt"
	"math/big"
)

// FunctionCaller signs change method calls. *Account implements it.
type FunctionCaller interface {
	FunctionCall(
		ctx context.Context, contractId, method string, args interface{},
		gas uint64, deposit *big.Int,
	) (*FinalExecutionOutcome, error)
}

// Contract restricts calls to a known set of view and change methods.
type Contract struct {
	id            string
	provider      Provider
	viewMethods   map[string]struct{}
	changeMethods []string
	changeSet     map[string]struct{}
}

func NewContract(
	id string, provider Provider, viewMethods, changeMethods []string,
) *Contract {
	views := make(map[string]struct{}, len(viewMethods))
	for _, m := range viewMethods {
		views[m] = struct{}{}
	}
	changes := make(map[string]struct{}, len(changeMethods))
	for _, m := range changeMethods {
		changes[m] = struct{}{}
	}
	return &Contract{
		id:            id,
		provider:      provider,
		viewMethods:   views,
		changeMethods: append([]string{}, changeMethods...),
		changeSet:     changes,
	}
}

func (c *Contract) ID() string {
	return c.id
}

func (c *Contract) ChangeMethods() []string {
	return append([]string{}, c.changeMethods...)
}

func (c *Contract) View(ctx context.Context, method string, args, reply interface{}) error {
	if _, ok := c.viewMethods[method]; !ok {
		return fmt.Errorf("%s is not a view method of %s", method, c.id)
	}
	return ViewFunction(ctx, c.provider, c.id, method, args, reply)
}

// Call invokes a change method signed by caller.
func (c *Contract) Call(
	ctx context.Context, caller FunctionCaller, method string, args interface{},
	gas uint64, deposit *big.Int,
) (*FinalExecutionOutcome, error) {
	if _, ok := c.changeSet[method]; !ok {
		return nil, fmt.Errorf("%s is not a change method of %s", method, c.id)
	}
	return caller.FunctionCall(ctx, c.id, method, args, gas, deposit)
}

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

var (
	usernameFlag = &cli.StringFlag{
		Name:     "username",
		Usage:    "guest username, the account id is <username>.<contract>",
		Required: true,
	}
	receiverFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "receiver account id",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "amount of tokens to send, in NEAR units",
		Required: true,
	}
)

var (
	provisionCommand = cli.Command{
		Name:   "provision",
		Usage:  "Create a guest account through the relayer",
		Flags:  []cli.Flag{usernameFlag},
		Action: provisionAction,
	}
	statusCommand = cli.Command{
		Name:   "status",
		Usage:  "Show the guest account status",
		Action: statusAction,
	}
	registerCommand = cli.Command{
		Name:   "register",
		Usage:  "Register the guest with the token contract, the relayer pays",
		Action: registerAction,
	}
	transferCommand = cli.Command{
		Name:   "transfer",
		Usage:  "Transfer tokens from the guest account",
		Flags:  []cli.Flag{receiverFlag, amountFlag},
		Action: transferAction,
	}
	upgradeCommand = cli.Command{
		Name:   "upgrade",
		Usage:  "Turn a funded guest into a real account with a new full access key",
		Action: upgradeAction,
	}
	removeCommand = cli.Command{
		Name:   "remove",
		Usage:  "Forget the local guest keys",
		Action: removeAction,
	}
	seedCommand = cli.Command{
		Name:   "seed",
		Usage:  "Print the seed phrase of the current key",
		Action: seedAction,
	}
)

func provisionAction(ctx *cli.Context) error {
	client, err := getGuestClient(ctx)
	if err != nil {
		return err
	}
	defer client.Stop()

	state, err := client.Provision(ctx.Context, ctx.String(usernameFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"account_id": state.AccountId,
		"public_key": state.AccessPublic,
	})
}

func statusAction(ctx *cli.Context) error {
	client, err := getGuestClient(ctx)
	if err != nil {
		return err
	}
	defer client.Stop()

	status, err := client.Status(ctx.Context)
	if err != nil {
		return err
	}

	resp := map[string]interface{}{
		"stage": status.Stage.String(),
	}
	if status.AccountId != "" {
		resp["account_id"] = status.AccountId
		resp["public_key"] = status.PublicKey
	}
	if status.PendingUpgrade {
		resp["pending_upgrade"] = true
	}
	if status.Registered != nil {
		resp["registered"] = *status.Registered
	}
	if status.IsGuest != nil {
		resp["is_guest"] = *status.IsGuest
	}
	if balance, err := near.ParseYoctoAmount(status.TokenBalance); err == nil {
		resp["token_balance"] = near.FormatNearAmount(balance)
	}
	if balance, err := near.ParseYoctoAmount(status.NativeBalance); err == nil {
		resp["native_balance"] = near.FormatNearAmount(balance)
	}
	return printJSON(resp)
}

func registerAction(ctx *cli.Context) error {
	client, err := getGuestClient(ctx)
	if err != nil {
		return err
	}
	defer client.Stop()

	txHash, err := client.Register(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"txid": txHash})
}

func transferAction(ctx *cli.Context) error {
	amount, err := near.ParseNearAmount(ctx.String(amountFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid amount: %s", err)
	}

	client, err := getGuestClient(ctx)
	if err != nil {
		return err
	}
	defer client.Stop()

	txHash, err := client.Transfer(ctx.Context, ctx.String(receiverFlag.Name), amount)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"txid": txHash})
}

func upgradeAction(ctx *cli.Context) error {
	client, err := getGuestClient(ctx)
	if err != nil {
		return err
	}
	defer client.Stop()

	state, err := client.Upgrade(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"account_id":  state.AccountId,
		"public_key":  state.AccessPublic,
		"seed_phrase": state.SeedPhrase,
	})
}

func removeAction(ctx *cli.Context) error {
	client, err := getGuestClient(ctx)
	if err != nil {
		return err
	}
	defer client.Stop()

	return client.Remove(ctx.Context)
}

func seedAction(ctx *cli.Context) error {
	client, err := getGuestClient(ctx)
	if err != nil {
		return err
	}
	defer client.Stop()

	state, err := client.GetState(ctx.Context)
	if err != nil {
		return err
	}
	if len(state.PendingSeedPhrase) <= 0 {
		fmt.Println(state.SeedPhrase)
		return nil
	}
	// The pending key may already control the upgraded account.
	return printJSON(map[string]string{
		"seed_phrase":         state.SeedPhrase,
		"pending_seed_phrase": state.PendingSeedPhrase,
	})
}

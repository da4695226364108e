package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
	guestsdk "github.com/wrap-near/guest-relayer/pkg/client-sdk"
	restclient "github.com/wrap-near/guest-relayer/pkg/client-sdk/client/rest"
	"github.com/wrap-near/guest-relayer/pkg/client-sdk/store"
	"github.com/wrap-near/guest-relayer/pkg/client-sdk/types"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

const (
	defaultRelayerURL = "http://localhost:3000"
)

var (
	version = "alpha"

	defaultDatadir = btcutil.AppDataDir("guest", false)

	defaultContracts = map[string]string{
		near.TestNet.ID:  "dev-1614282578076-7902606",
		near.MainNet.ID:  "near",
		near.LocalNet.ID: "test.near",
	}

	datadirFlag = &cli.StringFlag{
		Name:    "datadir",
		Usage:   "directory holding the guest keys",
		Value:   defaultDatadir,
		EnvVars: []string{"GUEST_DATADIR"},
	}
	storeFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "guest key store type (file or badger)",
		Value: types.FileStore,
	}
	relayerUrlFlag = &cli.StringFlag{
		Name:    "relayer-url",
		Usage:   "url of the relayer",
		Value:   defaultRelayerURL,
		EnvVars: []string{"GUEST_RELAYER_URL"},
	}
	networkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   "network id (testnet, mainnet or local)",
		Value:   near.TestNet.ID,
		EnvVars: []string{"GUEST_NETWORK"},
	}
	nodeUrlFlag = &cli.StringFlag{
		Name:    "node-url",
		Usage:   "NEAR rpc url, defaults to the network one",
		EnvVars: []string{"GUEST_NODE_URL"},
	}
	contractFlag = &cli.StringFlag{
		Name:    "contract",
		Usage:   "token contract account id, defaults to the network one",
		EnvVars: []string{"GUEST_CONTRACT"},
	}
)

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "guest CLI"
	app.Usage = "Command line interface for gas-free guest accounts"
	app.Flags = []cli.Flag{
		datadirFlag, storeFlag, relayerUrlFlag, networkFlag, nodeUrlFlag, contractFlag,
	}
	app.Commands = append(
		app.Commands,
		&provisionCommand,
		&statusCommand,
		&registerCommand,
		&transferCommand,
		&upgradeCommand,
		&removeCommand,
		&seedCommand,
	)

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

func getGuestClient(ctx *cli.Context) (guestsdk.GuestClient, error) {
	network, err := near.NetworkFromString(ctx.String(networkFlag.Name))
	if err != nil {
		return nil, err
	}
	nodeUrl := ctx.String(nodeUrlFlag.Name)
	if nodeUrl == "" {
		nodeUrl = network.NodeURL
	}
	contract := ctx.String(contractFlag.Name)
	if contract == "" {
		contract = defaultContracts[network.ID]
	}

	relayer, err := restclient.NewClient(ctx.String(relayerUrlFlag.Name))
	if err != nil {
		return nil, err
	}
	guestStore, err := store.NewGuestStore(store.Config{
		StoreType: ctx.String(storeFlag.Name),
		BaseDir:   ctx.String(datadirFlag.Name),
	})
	if err != nil {
		return nil, err
	}

	return guestsdk.NewGuestClient(guestsdk.Config{
		ContractName: contract,
		Chain:        near.NewClient(nodeUrl),
		Relayer:      relayer,
		Store:        guestStore,
	})
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}

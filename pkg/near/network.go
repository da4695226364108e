package near

import (
	"fmt"
	"strings"
)

type Network struct {
	ID        string
	NodeURL   string
	WalletURL string
	HelperURL string
}

var (
	TestNet = Network{
		ID:        "testnet",
		NodeURL:   "https://rpc.testnet.near.org",
		WalletURL: "https://wallet.testnet.near.org",
		HelperURL: "https://helper.testnet.near.org",
	}
	MainNet = Network{
		ID:        "mainnet",
		NodeURL:   "https://rpc.mainnet.near.org",
		WalletURL: "https://wallet.near.org",
		HelperURL: "https://helper.mainnet.near.org",
	}
	LocalNet = Network{
		ID:        "local",
		NodeURL:   "http://localhost:3030",
		WalletURL: "http://localhost:4000/wallet",
		HelperURL: "http://localhost:3000",
	}
)

func NetworkFromString(net string) (Network, error) {
	switch strings.ToLower(net) {
	case "testnet", "development", "":
		return TestNet, nil
	case "mainnet", "prod", "production":
		return MainNet, nil
	case "local", "localnet":
		return LocalNet, nil
	default:
		return Network{}, fmt.Errorf("unknown network %s", net)
	}
}

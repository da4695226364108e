package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/wrap-near/guest-relayer/internal/core/application"
	"github.com/wrap-near/guest-relayer/internal/core/ports"
	"github.com/wrap-near/guest-relayer/internal/infrastructure/db"
	envkeyloader "github.com/wrap-near/guest-relayer/internal/infrastructure/keyloader/env"
	filekeyloader "github.com/wrap-near/guest-relayer/internal/infrastructure/keyloader/file"
	inmemorylivestore "github.com/wrap-near/guest-relayer/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/wrap-near/guest-relayer/internal/infrastructure/live-store/redis"
	scheduler "github.com/wrap-near/guest-relayer/internal/infrastructure/scheduler/gocron"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

var (
	supportedDbs = supportedType{
		"badger": {},
		"sqlite": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedKeyLoaders = supportedType{
		"file": {},
		"env":  {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}

	defaultContracts = map[string]string{
		near.TestNet.ID:  "dev-1614282578076-7902606",
		near.MainNet.ID:  "near",
		near.LocalNet.ID: "test.near",
	}
)

type Config struct {
	Datadir         string
	Port            uint32
	NoTLS           bool
	LogLevel        int
	TLSExtraIPs     []string
	TLSExtraDomains []string
	AdminToken      string `json:"-"`
	Bootstrap       bool

	Network                 string
	NodeURL                 string
	WalletURL               string
	HelperURL               string
	ContractName            string
	GuestsAccountId         string
	Gas                     uint64
	DefaultNewAccountAmount string
	GuestAllowance          string
	MaxBlockAge             uint64
	SyncInterval            int64

	KeyLoaderType       string
	CredentialsDir      string
	ContractSecret      string `json:"-"`
	GuestsAccountSecret string `json:"-"`

	DbType                string
	DbDir                 string
	LiveStoreType         string
	RedisUrl              string `json:"-"`
	RedisNumOfRetries     int
	SchedulerType         string

	repo            ports.RepoManager
	svc             application.Service
	liveStore       ports.LiveStore
	scheduler       ports.SchedulerService
	keyLoader       ports.KeyLoader
	chain           near.Provider
	contractAccount *near.Account
	guestsAccount   *near.Account
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir                 = "DATADIR"
	Port                    = "PORT"
	NoTLS                   = "NO_TLS"
	LogLevel                = "LOG_LEVEL"
	TLSExtraIP              = "TLS_EXTRA_IP"
	TLSExtraDomain          = "TLS_EXTRA_DOMAIN"
	AdminToken              = "ADMIN_TOKEN"
	Bootstrap               = "BOOTSTRAP"
	Network                 = "NETWORK"
	NodeURL                 = "NODE_URL"
	WalletURL               = "WALLET_URL"
	HelperURL               = "HELPER_URL"
	ContractName            = "CONTRACT_NAME"
	Gas                     = "GAS"
	DefaultNewAccountAmount = "DEFAULT_NEW_ACCOUNT_AMOUNT"
	GuestAllowance          = "GUEST_ALLOWANCE"
	MaxBlockAge             = "MAX_BLOCK_AGE"
	SyncInterval            = "SYNC_INTERVAL"
	KeyLoaderType           = "KEY_LOADER_TYPE"
	CredentialsDir          = "CREDENTIALS_DIR"
	ContractSecret          = "CONTRACT_SECRET"
	GuestsAccountSecret     = "GUESTS_ACCOUNT_SECRET"
	DbType                  = "DB_TYPE"
	LiveStoreType           = "LIVE_STORE_TYPE"
	RedisUrl                = "REDIS_URL"
	RedisNumOfRetries       = "REDIS_NUM_OF_RETRIES"
	SchedulerType           = "SCHEDULER_TYPE"

	defaultDatadir                 = btcutil.AppDataDir("relayerd", false)
	DefaultPort                    = 3000
	defaultNoTLS                   = true
	defaultLogLevel                = 4
	defaultNetwork                 = near.TestNet.ID
	defaultGas                     = 200000000000000
	defaultDefaultNewAccountAmount = "5"
	defaultGuestAllowance          = "0.1"
	defaultMaxBlockAge             = 100
	defaultSyncInterval            = 60
	defaultKeyLoaderType           = "file"
	defaultCredentialsDir          = filepath.Join(userHomeDir(), ".near-credentials")
	defaultDbType                  = "badger"
	defaultLiveStoreType           = "inmemory"
	defaultRedisNumOfRetries       = 5
	defaultSchedulerType           = "gocron"
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("RELAYER")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(NoTLS, defaultNoTLS)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(Gas, defaultGas)
	viper.SetDefault(DefaultNewAccountAmount, defaultDefaultNewAccountAmount)
	viper.SetDefault(GuestAllowance, defaultGuestAllowance)
	viper.SetDefault(MaxBlockAge, defaultMaxBlockAge)
	viper.SetDefault(SyncInterval, defaultSyncInterval)
	viper.SetDefault(KeyLoaderType, defaultKeyLoaderType)
	viper.SetDefault(CredentialsDir, defaultCredentialsDir)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(LiveStoreType, defaultLiveStoreType)
	viper.SetDefault(RedisNumOfRetries, defaultRedisNumOfRetries)
	viper.SetDefault(SchedulerType, defaultSchedulerType)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	network, err := near.NetworkFromString(viper.GetString(Network))
	if err != nil {
		return nil, err
	}

	contractName := viper.GetString(ContractName)
	if contractName == "" {
		contractName = defaultContracts[network.ID]
	}

	return &Config{
		Datadir:                 viper.GetString(Datadir),
		Port:                    viper.GetUint32(Port),
		NoTLS:                   viper.GetBool(NoTLS),
		LogLevel:                viper.GetInt(LogLevel),
		TLSExtraIPs:             viper.GetStringSlice(TLSExtraIP),
		TLSExtraDomains:         viper.GetStringSlice(TLSExtraDomain),
		AdminToken:              viper.GetString(AdminToken),
		Bootstrap:               viper.GetBool(Bootstrap),
		Network:                 network.ID,
		NodeURL:                 stringOr(viper.GetString(NodeURL), network.NodeURL),
		WalletURL:               stringOr(viper.GetString(WalletURL), network.WalletURL),
		HelperURL:               stringOr(viper.GetString(HelperURL), network.HelperURL),
		ContractName:            contractName,
		GuestsAccountId:         "guests." + contractName,
		Gas:                     viper.GetUint64(Gas),
		DefaultNewAccountAmount: viper.GetString(DefaultNewAccountAmount),
		GuestAllowance:          viper.GetString(GuestAllowance),
		MaxBlockAge:             viper.GetUint64(MaxBlockAge),
		SyncInterval:            viper.GetInt64(SyncInterval),
		KeyLoaderType:           viper.GetString(KeyLoaderType),
		CredentialsDir:          viper.GetString(CredentialsDir),
		ContractSecret:          viper.GetString(ContractSecret),
		GuestsAccountSecret:     viper.GetString(GuestsAccountSecret),
		DbType:                  viper.GetString(DbType),
		DbDir:                   filepath.Join(viper.GetString(Datadir), "db"),
		LiveStoreType:           viper.GetString(LiveStoreType),
		RedisUrl:                viper.GetString(RedisUrl),
		RedisNumOfRetries:       viper.GetInt(RedisNumOfRetries),
		SchedulerType:           viper.GetString(SchedulerType),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf("live store type not supported, please select one of: %s", supportedLiveStores)
	}
	if !supportedKeyLoaders.supports(c.KeyLoaderType) {
		return fmt.Errorf("key loader type not supported, please select one of: %s", supportedKeyLoaders)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if len(c.ContractName) <= 0 {
		return fmt.Errorf("missing contract name")
	}
	if c.Gas == 0 {
		return fmt.Errorf("invalid gas, must be greater than 0")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("invalid sync interval, must be 0 (disabled) or positive")
	}
	if _, err := near.ParseNearAmount(c.DefaultNewAccountAmount); err != nil {
		return fmt.Errorf("invalid default new account amount: %s", err)
	}
	if _, err := near.ParseNearAmount(c.GuestAllowance); err != nil {
		return fmt.Errorf("invalid guest allowance: %s", err)
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.keyLoaderService(); err != nil {
		return err
	}
	if err := c.chainService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	switch c.LiveStoreType {
	case "inmemory":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		if c.RedisUrl == "" {
			return fmt.Errorf("missing redis url")
		}
		opts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid redis url: %s", err)
		}
		liveStoreSvc = redislivestore.NewLiveStore(redis.NewClient(opts), c.RedisNumOfRetries)
	default:
		return fmt.Errorf("unknown liveStore type")
	}

	c.liveStore = liveStoreSvc
	return nil
}

func (c *Config) schedulerService() error {
	switch c.SchedulerType {
	case "gocron":
		c.scheduler = scheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}
	return nil
}

func (c *Config) keyLoaderService() error {
	var svc ports.KeyLoader
	var err error
	switch c.KeyLoaderType {
	case "file":
		svc, err = filekeyloader.NewService(c.CredentialsDir, c.Network)
	case "env":
		svc, err = envkeyloader.NewService(map[string]string{
			c.ContractName:    c.ContractSecret,
			c.GuestsAccountId: c.GuestsAccountSecret,
		})
	default:
		err = fmt.Errorf("unknown key loader type")
	}
	if err != nil {
		return err
	}

	c.keyLoader = svc
	return nil
}

func (c *Config) chainService() error {
	if c.keyLoader == nil {
		return fmt.Errorf("key loader not set")
	}
	if c.liveStore == nil {
		return fmt.Errorf("live store not set")
	}

	chain := near.NewClient(c.NodeURL)
	ctx := context.Background()

	contractKey, err := c.keyLoader.LoadKey(ctx, c.ContractName)
	if err != nil {
		return fmt.Errorf("failed to load contract account key: %s", err)
	}
	c.contractAccount = near.NewAccount(
		c.ContractName, contractKey, chain, c.liveStore.Nonces(),
	)

	// Without the guests account the relayer still serves every route but
	// add-guest.
	guestsKey, err := c.keyLoader.LoadKey(ctx, c.GuestsAccountId)
	if err != nil {
		log.WithError(err).Warnf("guests account %s not available", c.GuestsAccountId)
	} else {
		c.guestsAccount = near.NewAccount(
			c.GuestsAccountId, guestsKey, chain, c.liveStore.Nonces(),
		)
	}

	c.chain = chain
	return nil
}

func (c *Config) appService() error {
	if c.chain == nil || c.repo == nil {
		return fmt.Errorf("config not validated")
	}

	var guestsAccount ports.Signer
	if c.guestsAccount != nil {
		guestsAccount = c.guestsAccount
	}

	svc, err := application.NewService(
		application.Config{
			ContractName:            c.ContractName,
			GuestsAccountId:         c.GuestsAccountId,
			Gas:                     c.Gas,
			DefaultNewAccountAmount: near.MustParseNearAmount(c.DefaultNewAccountAmount),
			GuestAllowance:          near.MustParseNearAmount(c.GuestAllowance),
			MaxBlockAge:             c.MaxBlockAge,
			SyncInterval:            c.SyncInterval,
		},
		c.chain, c.contractAccount, guestsAccount, c.repo, c.liveStore, c.scheduler,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

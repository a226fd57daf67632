package config

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EchoServer holds the HTTP listener settings.
type EchoServer struct {
	ListenAddress string
}

// Chain holds the settings for the public RPC endpoint and the fixed
// transaction parameters of this service.
type Chain struct {
	RPCURL           string
	ChainID          int64
	TransferGasLimit uint64
}

// Identity holds the external identity provider settings.
type Identity struct {
	URL    string
	APIKey string
}

// Custody holds the external MPC wallet provider settings, including the
// readiness polling policy applied after wallet creation.
type Custody struct {
	URL             string
	APIKey          string
	PollInterval    time.Duration
	PollMaxAttempts int
}

type Logger struct {
	Level              zerolog.Level
	PrettyPrintConsole bool
}

// Server is the top-level service configuration, sourced from ENV.
type Server struct {
	Echo     EchoServer
	Chain    Chain
	Identity Identity
	Custody  Custody
	Logger   Logger
}

// DefaultServiceConfigFromEnv assembles the service config from the
// environment. An optional .env file in the working directory is merged in
// first. Values are not validated here, see Validate.
func DefaultServiceConfigFromEnv() Server {
	// optional local .env, ENV always wins
	_ = gotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("WALLETD_CHAIN_ID", 11155111) // Sepolia
	v.SetDefault("WALLETD_TRANSFER_GAS_LIMIT", 21000)
	v.SetDefault("WALLETD_CUSTODY_POLL_INTERVAL", "500ms")
	v.SetDefault("WALLETD_CUSTODY_POLL_MAX_ATTEMPTS", 60)
	v.SetDefault("WALLETD_LOGGER_LEVEL", "info")
	v.SetDefault("WALLETD_LOGGER_PRETTY_PRINT_CONSOLE", false)

	logLevel, err := zerolog.ParseLevel(v.GetString("WALLETD_LOGGER_LEVEL"))
	if err != nil {
		log.Warn().Str("level", v.GetString("WALLETD_LOGGER_LEVEL")).Msg("Unknown log level, defaulting to info")
		logLevel = zerolog.InfoLevel
	}

	return Server{
		Echo: EchoServer{
			ListenAddress: v.GetString("WALLETD_SERVER_LISTEN_ADDRESS"),
		},
		Chain: Chain{
			RPCURL:           v.GetString("WALLETD_CHAIN_RPC_URL"),
			ChainID:          v.GetInt64("WALLETD_CHAIN_ID"),
			TransferGasLimit: v.GetUint64("WALLETD_TRANSFER_GAS_LIMIT"),
		},
		Identity: Identity{
			URL:    v.GetString("WALLETD_IDENTITY_URL"),
			APIKey: v.GetString("WALLETD_IDENTITY_API_KEY"),
		},
		Custody: Custody{
			URL:             v.GetString("WALLETD_CUSTODY_URL"),
			APIKey:          v.GetString("WALLETD_CUSTODY_API_KEY"),
			PollInterval:    v.GetDuration("WALLETD_CUSTODY_POLL_INTERVAL"),
			PollMaxAttempts: v.GetInt("WALLETD_CUSTODY_POLL_MAX_ATTEMPTS"),
		},
		Logger: Logger{
			Level:              logLevel,
			PrettyPrintConsole: v.GetBool("WALLETD_LOGGER_PRETTY_PRINT_CONSOLE"),
		},
	}
}

// Validate refuses any config that is missing a required external endpoint
// or credential. The process must fail at startup rather than lazily on the
// first request that needs the missing value.
func (c Server) Validate() error {
	required := []struct {
		key string
		ok  bool
	}{
		{"WALLETD_SERVER_LISTEN_ADDRESS", c.Echo.ListenAddress != ""},
		{"WALLETD_CHAIN_RPC_URL", c.Chain.RPCURL != ""},
		{"WALLETD_IDENTITY_URL", c.Identity.URL != ""},
		{"WALLETD_IDENTITY_API_KEY", c.Identity.APIKey != ""},
		{"WALLETD_CUSTODY_URL", c.Custody.URL != ""},
		{"WALLETD_CUSTODY_API_KEY", c.Custody.APIKey != ""},
	}

	for _, r := range required {
		if !r.ok {
			return errors.Errorf("missing required configuration value %s", r.key)
		}
	}

	if c.Chain.ChainID <= 0 {
		return errors.New("WALLETD_CHAIN_ID must be positive")
	}
	if c.Custody.PollMaxAttempts <= 0 {
		return errors.New("WALLETD_CUSTODY_POLL_MAX_ATTEMPTS must be positive")
	}
	if c.Custody.PollInterval <= 0 {
		return errors.New("WALLETD_CUSTODY_POLL_INTERVAL must be positive")
	}

	return nil
}

// PrintableJSON renders the config with credentials redacted, for the env
// subcommand and startup logging.
func (c Server) PrintableJSON() ([]byte, error) {
	redacted := c
	if redacted.Identity.APIKey != "" {
		redacted.Identity.APIKey = "<redacted>"
	}
	if redacted.Custody.APIKey != "" {
		redacted.Custody.APIKey = "<redacted>"
	}

	return json.MarshalIndent(redacted, "", "  ")
}

package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opalhq/walletd/internal/chain"
	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/util/command"
)

const (
	verboseFlag string = "verbose"

	probeTimeout = 5 * time.Second
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
		newChain(),
	)
}

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs the liveness probe against the local server",
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)
			runProbe("/-/healthy", verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Print the probe response body")

	return cmd
}

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs the readiness probe against the local server",
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)
			runProbe("/-/ready", verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Print the probe response body")

	return cmd
}

// newChain dials the configured chain RPC endpoint and fetches a fee
// estimate, verifying connectivity before the server is started.
func newChain() *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Checks connectivity to the configured chain RPC endpoint",
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := config.DefaultServiceConfigFromEnv()
			if cfg.Chain.RPCURL == "" {
				log.Fatal().Msg("WALLETD_CHAIN_RPC_URL is not set")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			defer cancel()

			client, err := chain.Dial(ctx, cfg.Chain.RPCURL)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to dial chain endpoint")
			}
			defer client.Close()

			fees, err := client.EstimateFees(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to fetch fee estimate")
			}

			fmt.Printf("gas_tip_cap=%s gas_fee_cap=%s\n", fees.GasTipCap, fees.GasFeeCap)
		},
	}
}

// runProbe issues one GET against the locally listening server and exits
// non-zero on anything but a 200. Meant to back container health checks.
func runProbe(path string, verbose bool) {
	cfg := config.DefaultServiceConfigFromEnv()

	listen := cfg.Echo.ListenAddress
	if strings.HasPrefix(listen, ":") {
		listen = "127.0.0.1" + listen
	}

	client := &http.Client{Timeout: probeTimeout}

	res, err := client.Get(fmt.Sprintf("http://%s%s", listen, path))
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Probe request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read probe response")
	}

	if verbose {
		fmt.Println(string(body))
	}

	if res.StatusCode != http.StatusOK {
		log.Fatal().Int("status", res.StatusCode).Str("path", path).Msg("Probe failed")
	}
}

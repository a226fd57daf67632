package env

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opalhq/walletd/internal/config"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Prints the effective config",
		Long:  `Prints the service environment config as parsed, with secrets redacted.`,
		Run: func(_ *cobra.Command, _ []string) {
			cfg := config.DefaultServiceConfigFromEnv()

			printable, err := cfg.PrintableJSON()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to render config")
			}

			fmt.Println(string(printable))
		},
	}
}

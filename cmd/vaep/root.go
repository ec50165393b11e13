package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/okian/vaep/internal/config"
	"github.com/okian/vaep/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vaep",
	Short: "Label and value SPADL action sequences",
	Long: `Computes VAEP training labels and action values for football games in
the SPADL representation, either as an HTTP service or over CSV files.

Configuration is read from the YAML file named by VAEP_CONFIG and from
VAEP_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		var opts []logger.Option
		if cfg.LogDevelopment {
			opts = append(opts, logger.WithDevelopment())
		}
		if err := logger.Init(opts...); err != nil {
			return eris.Wrap(err, "init logger")
		}
		// fall back to info on invalid input
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
				logger.String("log_level", cfg.LogLevel), logger.Error(err))
			_ = logger.SetLevelString("info")
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

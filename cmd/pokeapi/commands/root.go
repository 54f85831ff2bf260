package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand creates the pokeapi command tree with its global flags bound to viper.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pokeapi",
		Short: "PokéAPI v2 CLI",
		Long: `A command-line interface for the PokéAPI v2 service.

Names are resolved against each endpoint's catalog, so misspellings such as
"brelom" still find "breloom". Responses are cached on disk and served from the
cache on later runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.pokeapi/config.yml)")
	flags.String("base-url", "", "service root URL (default https://pokeapi.co/api/v2)")
	flags.String("cache-type", "", "cache backend: file, bolt, nats or none (default file)")
	flags.String("cache-dir", "", "cache directory (default is the user cache directory)")
	flags.String("nats-url", "", "NATS server URL for the nats cache")
	flags.Duration("cache-max-age", 0, "refetch cached responses older than this (default 0 keeps them)")
	flags.StringP("output", "o", "", "output format (table, json, yaml); default table on a terminal, json otherwise")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("no-match", false, "use resource names verbatim instead of resolving them")
	flags.Bool("dedup", false, "share one fetch between identical concurrent requests")
	flags.Duration("http-timeout", 0, "timeout of a single HTTP attempt (default 30s)")
	flags.Int("retries", 0, "retries of transient failures (default 4, 0 disables)")
	flags.Bool("show-metrics", false, "print client metrics after the command")

	bindings := map[string]string{
		KeyBaseURL:     "base-url",
		KeyCacheType:   "cache-type",
		KeyCacheDir:    "cache-dir",
		KeyNATSURL:     "nats-url",
		KeyCacheMaxAge: "cache-max-age",
		KeyOutput:      "output",
		KeyVerbose:     "verbose",
		KeyNoMatch:     "no-match",
		KeyDedup:       "dedup",
		KeyTimeout:     "http-timeout",
		KeyRetries:     "retries",
		KeyShowMetrics: "show-metrics",
	}

	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewGetCommand())
	rootCmd.AddCommand(NewResolveCommand())
	rootCmd.AddCommand(NewEndpointsCommand())
	rootCmd.AddCommand(NewCatalogCommand())
	rootCmd.AddCommand(NewBatchCommand())
	rootCmd.AddCommand(NewCacheCommand())

	return rootCmd
}

func initConfig(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ConfigDirName))
		}

		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("POKEAPI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil {
		if viper.GetBool(KeyVerbose) {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
		}

		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || os.IsNotExist(err) {
		return nil
	}

	return fmt.Errorf("failed to read config file: %w", err)
}

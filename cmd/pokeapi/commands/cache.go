package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/pokeapi/internal/logging"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
		Long:  "Show statistics of, flush or clear the persistent response cache selected by --cache-type",
	}

	cmd.AddCommand(newCacheStatsCommand())
	cmd.AddCommand(newCacheFlushCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Long:  "Load every endpoint container and report the number of cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, store pokeapi.Cache) error {
				for _, endpoint := range pokeapi.KnownEndpoints() {
					store.Has(ctx, endpoint, "")
				}

				stats := store.Stats()

				return render(cmd.OutOrStdout(), stats, func(table *tablewriter.Table) error {
					table.Header("Property", "Value")
					_ = table.Append("Type", cacheTypeName())
					_ = table.Append("Endpoints", strconv.Itoa(stats.Endpoints))
					_ = table.Append("Entries", strconv.Itoa(stats.Entries))

					return table.Append("Pending writes", strconv.Itoa(stats.Dirty))
				})
			})
		},
	}
}

func newCacheFlushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Persist pending cache writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, store pokeapi.Cache) error {
				if err := store.Flush(ctx); err != nil {
					return err
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache flushed")

				return nil
			})
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [ENDPOINT]",
		Short: "Remove cached responses",
		Long:  "Remove every cached response of ENDPOINT, or of all endpoints when ENDPOINT is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := ""
			if len(args) == 1 {
				endpoint = args[0]
				if err := pokeapi.ValidateEndpoint(endpoint); err != nil {
					return err
				}
			}

			return withCache(cmd, func(ctx context.Context, store pokeapi.Cache) error {
				if err := store.Clear(ctx, endpoint); err != nil {
					return err
				}

				if err := store.Flush(ctx); err != nil {
					return err
				}

				scope := "all endpoints"
				if endpoint != "" {
					scope = endpoint
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared for %s\n", scope)

				return nil
			})
		},
	}
}

// withCache opens the configured cache directly, without a client.
func withCache(cmd *cobra.Command, fn func(ctx context.Context, store pokeapi.Cache) error) (err error) {
	config, err := buildCacheConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewDevelopment(viper.GetBool(KeyVerbose))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := pokeclient.NewCache(cmd.Context(), config, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
	}()

	return fn(cmd.Context(), store)
}

func cacheTypeName() string {
	if cacheType := viper.GetString(KeyCacheType); cacheType != "" {
		return cacheType
	}

	return string(pokeapi.CacheTypeFile)
}


package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// batchRow is the printed outcome of one batch operation.
type batchRow struct {
	ID       string `json:"id"              yaml:"id"`
	Name     string `json:"name,omitempty"  yaml:"name,omitempty"`
	ResID    int    `json:"res_id"          yaml:"res_id"`
	Duration string `json:"duration"        yaml:"duration"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	var (
		concurrency int
		timeout     time.Duration
		refresh     bool
	)

	cmd := &cobra.Command{
		Use:     "batch ENDPOINT RESOURCE...",
		Short:   "Fetch several resources concurrently",
		Long:    "Resolve and fetch every RESOURCE of ENDPOINT concurrently and report each outcome in argument order",
		Example: `  pokeapi batch berry cheri chesto pecha 4`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			builder := pokeapi.NewBatchBuilder()

			for _, arg := range args[1:] {
				identifier, err := parseResource(arg)
				if err != nil {
					return err
				}

				builder.AddOperation(pokeapi.BatchOperation{
					ID:       arg,
					Endpoint: args[0],
					Resource: identifier,
					Refresh:  refresh,
				})
			}

			return withSession(cmd, func(ctx context.Context, sess *session) error {
				executor := pokeapi.NewBatchExecutor(sess.client, concurrency)
				if timeout > 0 {
					executor.SetTimeout(timeout)
				}

				results, err := executor.Execute(ctx, builder.Build())
				if err != nil {
					return err
				}

				rows := batchRows(results)

				err = render(cmd.OutOrStdout(), rows, func(table *tablewriter.Table) error {
					table.Header("Request", "Name", "ID", "Duration", "Error")

					for _, row := range rows {
						if err := table.Append(row.ID, row.Name, fmt.Sprint(row.ResID), row.Duration, row.Error); err != nil {
							return err
						}
					}

					return nil
				})
				if err != nil {
					return err
				}

				if failed := pokeapi.FailedResults(results); len(failed) > 0 {
					return fmt.Errorf("%w: %d of %d", constants.ErrBatchFailed, len(failed), len(results))
				}

				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", constants.DefaultConcurrencyLimit, "maximum concurrent fetches")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout of each fetch (default 60s)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache read for every fetch")

	return cmd
}

func batchRows(results []pokeapi.BatchResult) []batchRow {
	rows := make([]batchRow, len(results))

	for i, result := range results {
		rows[i] = batchRow{ID: result.ID, Duration: formatDuration(result.Duration)}

		if result.Error != nil {
			rows[i].Error = result.Error.Error()

			continue
		}

		rows[i].Name = result.Resource.Name()
		rows[i].ResID = result.Resource.ID()
	}

	return rows
}

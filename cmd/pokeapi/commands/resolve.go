package commands

import (
	"context"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve ENDPOINT QUERY",
		Short: "Resolve a name against an endpoint catalog",
		Long:  "Print the canonical catalog name closest to QUERY and its edit distance, without fetching the resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, sess *session) error {
				match, err := sess.client.Resolve(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), match, func(table *tablewriter.Table) error {
					table.Header("Property", "Value")
					_ = table.Append("Endpoint", match.Endpoint)
					_ = table.Append("Query", match.Query)
					_ = table.Append("Name", match.Name)
					_ = table.Append("Distance", strconv.Itoa(match.Distance))

					return table.Append("Exact", strconv.FormatBool(match.Exact))
				})
			})
		},
	}
}

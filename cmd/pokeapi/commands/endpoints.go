package commands

import (
	"context"
	"strconv"

	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewEndpointsCommand creates the endpoints command.
func NewEndpointsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List known endpoints",
		Long:  "List every endpoint name the client accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoints := pokeapi.KnownEndpoints()

			return render(cmd.OutOrStdout(), endpoints, func(table *tablewriter.Table) error {
				table.Header("Endpoint")

				for _, endpoint := range endpoints {
					if err := table.Append(endpoint); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "catalog ENDPOINT",
		Short: "Show the catalog of an endpoint",
		Long:  "List every resource name and id of an endpoint, as used for name resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, sess *session) error {
				if refresh {
					sess.client.ClearCatalog(args[0])
				}

				entry, err := sess.client.Catalog(ctx, args[0])
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), entry, func(table *tablewriter.Table) error {
					if len(entry.Names) == 0 {
						table.Header("ID")

						for _, id := range entry.IDs {
							if err := table.Append(strconv.Itoa(id)); err != nil {
								return err
							}
						}

						return nil
					}

					table.Header("Name")

					for _, name := range entry.Names {
						if err := table.Append(name); err != nil {
							return err
						}
					}

					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "list the endpoint again instead of using the cached listing")

	return cmd
}

package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var (
		query   string
		refresh bool
		follow  string
	)

	cmd := &cobra.Command{
		Use:   "get ENDPOINT [RESOURCE]",
		Short: "Fetch a resource",
		Long: `Resolve RESOURCE against the endpoint catalog and fetch it, from the cache when possible.

RESOURCE is a name or a numeric id. Misspelled names resolve to the closest
catalog entry. Without RESOURCE the endpoint listing is fetched instead.`,
		Example: `  pokeapi get pokemon brelom
  pokeapi get berry 1 --output json
  pokeapi get pokemon --query "limit=20&offset=40"
  pokeapi get pokemon breloom --follow species`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := pokeapi.NoResource

			if len(args) == 2 {
				var err error

				identifier, err = parseResource(args[1])
				if err != nil {
					return err
				}
			}

			return withSession(cmd, func(ctx context.Context, sess *session) error {
				fetch := sess.client.ResolveAndFetch
				if refresh {
					fetch = sess.client.Refetch
				}

				resource, err := fetch(ctx, args[0], identifier, query)
				if err != nil {
					return err
				}

				if follow != "" {
					resource, err = followPath(ctx, sess.client, resource.Node, follow)
					if err != nil {
						return err
					}
				}

				return render(cmd.OutOrStdout(), resource, func(table *tablewriter.Table) error {
					return nodeRows(table, resource.Node)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "querystring for listing requests, e.g. limit=20&offset=40")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache read and overwrite the cached entry")
	cmd.Flags().StringVarP(&follow, "follow", "f", "", "dotted path of a reference field to fetch instead, e.g. species or types.0.type")

	return cmd
}

// followPath walks a dotted path of field names and list indexes to a
// reference node and fetches what it points at.
func followPath(ctx context.Context, client pokeapi.Client, node *pokeapi.Node, path string) (*pokeapi.Resource, error) {
	var current interface{} = node

	for _, segment := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case *pokeapi.Node:
			value, ok := typed.Get(segment)
			if !ok {
				return nil, fmt.Errorf("%w: %s", constants.ErrFieldNotFound, segment)
			}

			current = value
		case []*pokeapi.Node:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(typed) {
				return nil, fmt.Errorf("%w: index %s of %d items", constants.ErrFieldNotFound, segment, len(typed))
			}

			current = typed[index]
		default:
			return nil, fmt.Errorf("%w: %s", constants.ErrFieldNotFound, segment)
		}
	}

	ref, ok := current.(*pokeapi.Node)
	if !ok || !ref.IsReference() {
		return nil, fmt.Errorf("%w: %s", constants.ErrFieldNotReference, path)
	}

	return client.Follow(ctx, ref)
}

// withSession opens a session, runs fn and closes the session, keeping the first error.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, sess *session) error) (err error) {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := sess.close(cmd.OutOrStdout()); err == nil {
			err = closeErr
		}
	}()

	return fn(ctx, sess)
}

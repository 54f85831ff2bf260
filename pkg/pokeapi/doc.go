// Package pokeapi provides types, interfaces, and helpers for reading the
// PokéAPI v2 REST service.
//
// # Overview
//
// The pokeapi package defines the public surface of the client: the Client
// interface, its Config, the closed set of known endpoints, resource
// identifiers, the error taxonomy, and the Node/Resource types that raw JSON
// responses are materialized into. A concrete implementation is provided by
// the pokeclient package, which wires configuration, the HTTP transport, the
// endpoint catalog, fuzzy name resolution, and the persistent response cache.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
//	  "github.com/fivetwenty-io/pokeapi/pkg/pokeclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := pokeclient.New(ctx, pokeapi.DefaultConfig())
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // "brelom" is resolved to "breloom" through the pokemon catalog.
//	  mon, err := cli.ResolveAndFetch(ctx, "pokemon", pokeapi.Name("brelom"), "")
//	  if err != nil { log.Fatal(err) }
//
//	  exp, _ := mon.GetInt("base_experience")
//	  _ = exp
//	}
//
// # Name resolution
//
// String identifiers are matched against the endpoint catalog, which is
// loaded once per endpoint with a single bulk listing request. Exact names are
// returned as-is; otherwise the closest catalog name by optimal string
// alignment distance wins, with ties broken by the lexicographically smallest
// name. Integer identifiers are checked against the catalog ids and fail with
// ErrUnknownResource when absent.
//
// # Caching
//
// Raw responses are cached per endpoint and written back on Flush and Close.
// See CacheConfig for the available backends (file, bbolt, NATS KV, none).
//
// # Materialized objects
//
// Every JSON object becomes a *Node whose field names are sanitized into Go
// identifiers: hyphens become underscores and Go keywords get a trailing
// underscore, so "base-experience" is exposed as "base_experience" and "type"
// as "type_". Nodes marshal back to their original JSON keys.
package pokeapi

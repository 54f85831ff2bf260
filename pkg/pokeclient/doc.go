// Package pokeclient provides the primary entry point for constructing a
// PokéAPI client that implements the pokeapi.Client interface.
//
// It wires the fetch layer, the response cache, the endpoint catalogs and the
// name matcher behind the pokeapi.Client interface. Most applications import
// pokeclient to build a client and then work with the pokeapi types it returns.
//
// Quick start
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
//
//	  cli, err := pokeclient.New(ctx, pokeapi.DefaultConfig())
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // Misspelled names resolve to the closest catalog entry.
//	  mon, err := cli.ResolveAndFetch(ctx, "pokemon", pokeapi.Name("brelom"), "")
//	  if err != nil { log.Fatal(err) }
//	  log.Println(mon.Name()) // breloom
//	}
//
// Caching
//
// Responses are cached per endpoint. The default is a file cache under the
// user cache directory; pokeapi.NewCacheBuilder selects a bbolt database or a
// NATS JetStream key-value bucket instead, and CacheTypeNone disables caching.
//
//	cacheConfig, _ := pokeapi.NewCacheBuilder().WithBoltPath("/var/cache/pokeapi.db").Build()
//	config := pokeapi.DefaultConfig()
//	config.Cache = cacheConfig
//
// Close flushes the cache. A flush that saved only part of it is logged; an
// unusable cache is returned as an error wrapping pokeapi.ErrCacheUnavailable.
package pokeclient

// Command cachectl inspects and maintains the persistent metro schedule cache.
//
// Usage:
//
//	cachectl [-backend sqlite|postgres|redis] [-version 1.0] stats
//	cachectl cleanup
//	cachectl clear
//	cachectl get <stationId> <directionId>
//	cachectl keys
//
// Storage settings come from the same environment and .env files as the API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/farukkamcici/ibb-transport-sub000/internal/config"
	"github.com/farukkamcici/ibb-transport-sub000/internal/kvstore"
	"github.com/farukkamcici/ibb-transport-sub000/internal/logging"
	"github.com/farukkamcici/ibb-transport-sub000/internal/schedulecache"
)

func main() {
	backend := flag.String("backend", "", "Override STORAGE_BACKEND (memory, sqlite, postgres, redis)")
	sqlitePath := flag.String("sqlite", "", "Override SQLITE_DATABASE")
	version := flag.String("version", "", "Override SCHEDULE_CACHE_VERSION")
	timeout := flag.Duration("timeout", 30*time.Second, "Timeout for the whole command")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Failed to load configuration: %v", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	if *backend != "" {
		cfg.Storage.Backend = strings.ToLower(*backend)
	}
	if *sqlitePath != "" {
		cfg.Storage.SQLitePath = *sqlitePath
	}
	if *version != "" {
		cfg.Cache.ScheduleVersion = *version
	}
	if err := config.Validate(cfg); err != nil {
		fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := kvstore.Open(ctx, cfg.Storage)
	if err != nil {
		fatalf("Failed to open %s store: %v", cfg.Storage.Backend, err)
	}
	defer store.Close()

	cache := schedulecache.New(store,
		schedulecache.WithVersion(cfg.Cache.ScheduleVersion),
		schedulecache.WithLocation(cfg.Location()),
	)

	if err := run(ctx, os.Stdout, cache, store, flag.Args()); err != nil {
		store.Close()
		fatalf("%v", err)
	}
}

func run(ctx context.Context, w io.Writer, cache *schedulecache.Cache, store kvstore.Store, args []string) error {
	switch args[0] {
	case "stats":
		return printJSON(w, cache.Stats(ctx))
	case "cleanup":
		fmt.Fprintf(w, "Removed %d invalid entries\n", cache.Cleanup(ctx))
		return nil
	case "clear":
		fmt.Fprintf(w, "Removed %d entries\n", cache.Clear(ctx))
		return nil
	case "keys":
		keys, err := store.Keys(ctx, schedulecache.DefaultPrefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintln(w, key)
		}
		return nil
	case "get":
		if len(args) != 3 {
			return fmt.Errorf("usage: cachectl get <stationId> <directionId>")
		}
		data, ok := cache.Get(ctx, args[1], args[2])
		if !ok {
			return fmt.Errorf("no cached schedule for %s/%s", args[1], args[2])
		}
		return printJSON(w, data)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: cachectl [flags] stats|cleanup|clear|keys|get <stationId> <directionId>\n\nFlags:\n")
	flag.PrintDefaults()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// Package main is weatherctl, a thin operator CLI over the same
// building blocks weatherd wires into a daemon: print the oracle's
// pubkey, checkpoint the event store's WAL, or fire one manual ETL
// tick. The HTTP API is the normal way an operator reaches these;
// weatherctl is the local-shell equivalent.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tee8z/weather-oracle/cmn"
	"github.com/tee8z/weather-oracle/dlccrypto"
	"github.com/tee8z/weather-oracle/etl"
	"github.com/tee8z/weather-oracle/eventstore"
)

var configPath = flag.String("config", "", "path to weatherctl.toml (overrides discovery order)")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flag.CommandLine.Parse(args)
	sub := flag.Arg(0)
	if sub == "" {
		fmt.Fprintln(os.Stderr, "usage: weatherctl <pubkey|checkpoint|archive|tick> [flags]")
		return 2
	}

	cfg, err := cmn.Load(cmn.CLIOverride{ConfigPath: *configPath, Kind: "weatherctl"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: load config: %v\n", err)
		return 1
	}

	switch sub {
	case "pubkey":
		return cmdPubkey(cfg)
	case "checkpoint":
		return cmdCheckpoint(cfg)
	case "archive":
		return cmdArchive(cfg, flag.Arg(1))
	case "tick":
		return cmdTick(cfg)
	default:
		fmt.Fprintf(os.Stderr, "weatherctl: unknown subcommand %q\n", sub)
		return 2
	}
}

// cmdPubkey prints the x-only pubkey derived from the configured key
// file, without touching the event store.
func cmdPubkey(cfg cmn.Config) int {
	priv, err := dlccrypto.LoadOrCreate(cfg.OraclePrivateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: load key: %v\n", err)
		return 1
	}
	xonly := dlccrypto.XOnly(priv.PubKey())
	fmt.Println(hex.EncodeToString(xonly[:]))
	return 0
}

// cmdCheckpoint truncates the event store's WAL so an external
// replicator sees a complete snapshot.
func cmdCheckpoint(cfg cmn.Config) int {
	store, err := eventstore.Open(cfg.EventDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: open event store: %v\n", err)
		return 1
	}
	defer store.Close()
	if err := store.Checkpoint(); err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: checkpoint: %v\n", err)
		return 1
	}
	fmt.Println("checkpoint complete")
	return 0
}

// cmdArchive checkpoints the WAL and writes a zstd-compressed snapshot
// of the event database, the local-shell analogue of an external
// replicator pulling a snapshot after checkpoint.
func cmdArchive(cfg cmn.Config, out string) int {
	if out == "" {
		out = "events.sqlite.zst"
	}
	store, err := eventstore.Open(cfg.EventDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: open event store: %v\n", err)
		return 1
	}
	defer store.Close()

	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: create %s: %v\n", out, err)
		return 1
	}
	if err := store.Archive(f); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "weatherctl: archive: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: close %s: %v\n", out, err)
		return 1
	}
	fmt.Printf("archived event store to %s\n", out)
	return 0
}

// cmdTick fires one ETL tick synchronously and reports how many active
// events it saw.
func cmdTick(cfg cmn.Config) int {
	priv, err := dlccrypto.LoadOrCreate(cfg.OraclePrivateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: load key: %v\n", err)
		return 1
	}
	store, err := eventstore.Open(cfg.EventDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: open event store: %v\n", err)
		return 1
	}
	defer store.Close()

	before, err := store.GetActiveEvents()
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: list active events: %v\n", err)
		return 1
	}

	cat, err := localCatalogFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: %v\n", err)
		return 1
	}

	orchestrator := etl.New(store, cat, priv, cfg.SleepInterval.Duration)
	if err := orchestrator.RunOnce(context.Background(), time.Now().UTC()); err != nil {
		fmt.Fprintf(os.Stderr, "weatherctl: tick: %v\n", err)
		return 1
	}
	fmt.Printf("tick complete: %d active events processed\n", len(before))
	return 0
}

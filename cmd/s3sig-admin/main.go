// Package main is the entry point for the s3sig admin CLI. This tool
// inspects and repairs the multipart registry: the crash-recovery side
// table tracking uploads that may have been left dangling on S3 by a client
// that crashed mid-upload.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/s3sig/internal/config"
	"github.com/prn-tf/s3sig/internal/registry"
	"github.com/prn-tf/s3sig/internal/registry/postgres"
	"github.com/prn-tf/s3sig/internal/registry/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("s3sig Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "uploads":
		if err := runUploadsCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	case "abort":
		if err := runAbortCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runUploadsCommand(args []string) error {
	fs := flag.NewFlagSet("uploads", flag.ExitOnError)
	state := fs.String("state", "open", "registry state to list: open, completed, or aborted")
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := openRegistryFromConfig(*configPath)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := store.ListByState(ctx, registry.State(*state))
	if err != nil {
		return fmt.Errorf("listing uploads: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("no uploads in state %q\n", *state)
		return nil
	}

	fmt.Printf("%-40s %-20s %-30s %-6s %-10s %s\n", "UPLOAD ID", "BUCKET", "KEY", "PARTS", "STATE", "CREATED")
	for _, r := range records {
		fmt.Printf("%-40s %-20s %-30s %-6d %-10s %s\n",
			r.UploadID, r.Bucket, r.Key, r.PartCount, r.State, r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runAbortCommand(args []string) error {
	fs := flag.NewFlagSet("abort", flag.ExitOnError)
	uploadID := fs.String("upload-id", "", "upload ID to mark aborted in the registry")
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uploadID == "" {
		return fmt.Errorf("--upload-id is required")
	}

	store, closeStore, err := openRegistryFromConfig(*configPath)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.MarkState(ctx, *uploadID, registry.StateAborted); err != nil {
		return fmt.Errorf("marking upload aborted: %w", err)
	}

	fmt.Printf("marked %s as aborted in the registry\n", *uploadID)
	fmt.Println("note: this does not call AbortMultipartUpload against S3 itself")
	return nil
}

func openRegistryFromConfig(configPath string) (registry.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, func() {}, err
	}

	ctx := context.Background()
	logger := zerolog.Nop()

	switch cfg.Registry.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Registry.PostgresDSN, logger)
		if err != nil {
			return nil, func() {}, err
		}
		store := postgres.NewStore(db)
		return store, func() { _ = store.Close() }, nil
	default:
		db, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.Registry.SQLitePath), logger)
		if err != nil {
			return nil, func() {}, err
		}
		store := sqlite.NewStore(db)
		return store, func() { _ = store.Close() }, nil
	}
}

func printUsage() {
	fmt.Println(`s3sig Admin CLI

Usage:
  s3sig-admin <command> [arguments]

Commands:
  uploads     List multipart registry rows (default: open uploads)
  abort       Mark a registry row as aborted after manually cleaning up on S3
  version     Print version information
  help        Show this help message

Examples:
  s3sig-admin uploads --state open
  s3sig-admin abort --upload-id 2~AbCdEf1234567890

Use "s3sig-admin <command> --help" for more information about a command.`)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// extractLimit pulls a trailing "--limit N" (in any position) out of args,
// since spec §6 writes `skip-login [keywords] [--limit N]` with the flag
// after the positional keywords — past flag.FlagSet's stop-at-first-
// non-flag-argument point. Whatever remains is handed to fs.Parse as usual.
func extractLimit(args []string, def int) ([]string, int) {
	limit := def
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if (args[i] == "--limit" || args[i] == "-limit") && i+1 < len(args) {
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				limit = n
			}
			i++
			continue
		}
		remaining = append(remaining, args[i])
	}
	return remaining, limit
}

// runSkipLogin implements `skip-login [keywords] [--limit N]`: an anonymous
// search smoke test that exits 0 on success without ever driving the QR
// login flow, useful for verifying the API client and catalog reachability
// from a script.
func runSkipLogin(args []string) {
	args, limit := extractLimit(args, 20)

	fs := flag.NewFlagSet("resonance skip-login", flag.ExitOnError)
	cfg := loadConfig(fs, args)

	logFile, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logFile.Close()

	query := strings.Join(fs.Args(), " ")
	if query == "" {
		query = "test"
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	apiClient, _, _, _, err := bootstrapAPIClient(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "skip-login: bootstrap failed:", err)
		os.Exit(1)
	}

	tracks, err := apiClient.Search(ctx, query)
	if err != nil {
		fmt.Fprintln(os.Stderr, "skip-login: search failed:", err)
		os.Exit(1)
	}

	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	for _, t := range tracks {
		fmt.Printf("%d\t%s - %s\n", t.ID, t.Title, t.Artists)
	}
	fmt.Fprintf(os.Stderr, "skip-login: query %q returned %d track(s)\n", query, len(tracks))
}

// runQRKey implements `qr-key`: prints the QR login key and image URL the
// user would scan to authenticate, then exits. It never polls for
// completion — that belongs to the TUI's login view.
func runQRKey(args []string) {
	fs := flag.NewFlagSet("resonance qr-key", flag.ExitOnError)
	cfg := loadConfig(fs, args)

	logFile, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	apiClient, _, _, _, err := bootstrapAPIClient(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "qr-key: bootstrap failed:", err)
		os.Exit(1)
	}

	qrToken, imgURL, err := apiClient.QRKey(ctx)
	if err != nil {
		slog.Error("qr-key request failed", "error", err)
		fmt.Fprintln(os.Stderr, "qr-key: request failed:", err)
		os.Exit(1)
	}

	fmt.Printf("qr_token: %s\n", qrToken)
	fmt.Printf("image_url: %s\n", imgURL)
}

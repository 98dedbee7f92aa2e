package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sorairo/resonance/internal/apiclient"
	"github.com/sorairo/resonance/internal/audio"
	"github.com/sorairo/resonance/internal/audio/device"
	"github.com/sorairo/resonance/internal/authstate"
	"github.com/sorairo/resonance/internal/config"
	"github.com/sorairo/resonance/internal/debugserver"
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/prefetch"
	"github.com/sorairo/resonance/internal/preload"
	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/reducer"
	"github.com/sorairo/resonance/internal/reqtracker"
	"github.com/sorairo/resonance/internal/settings"
	"github.com/sorairo/resonance/internal/snapshot"
	"github.com/sorairo/resonance/internal/transfer"
	"github.com/sorairo/resonance/internal/tuiapp"
)

const loginPollInterval = 2 * time.Second

// main dispatches to one of the command-line surface's subcommands. `tui`
// is the default when no subcommand is named, matching a bare invocation
// launching the interactive client.
func main() {
	subcommand := "tui"
	args := os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		subcommand = args[0]
		args = args[1:]
	}

	switch subcommand {
	case "tui":
		runTUI(args)
	case "skip-login":
		runSkipLogin(args)
	case "qr-key":
		runQRKey(args)
	default:
		fmt.Fprintf(os.Stderr, "resonance: unknown subcommand %q (want tui, skip-login, or qr-key)\n", subcommand)
		os.Exit(1)
	}
}

// loadConfig parses the global flags shared by every subcommand (plus any
// subcommand-specific flags already registered on fs) and resolves them
// against the environment per internal/config.
func loadConfig(fs *flag.FlagSet, args []string) config.Config {
	config.RegisterFlags(fs)
	_ = fs.Parse(args)
	return config.Load(fs)
}

func setupLogging(cfg config.Config) (*os.File, error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.LogDir, "resonance.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: parseLevel(cfg.LogFilter)})))
	return logFile, nil
}

// bootstrapAPIClient wires the auth-state store and API client every
// subcommand needs (tui, skip-login, qr-key alike), bootstrapping an
// anonymous session so search/playlist calls have a valid cookie even
// before QR login completes.
func bootstrapAPIClient(ctx context.Context, cfg config.Config) (apiclient.Client, *authstate.Store, string, *cookiejar.Jar, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, "", nil, fmt.Errorf("create data dir: %w", err)
	}

	authStore, err := authstate.NewStore(filepath.Join(cfg.DataDir, "auth_state.json"), cfg.APIDomain)
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("open auth state store: %w", err)
	}
	deviceID, jar, err := authStore.Load()
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("load auth state: %w", err)
	}

	apiClient := apiclient.New(apiclient.Config{
		BaseURL:        cfg.APIDomain,
		DeviceID:       deviceID,
		HTTPTimeout:    cfg.HTTPTimeout,
		ConnectTimeout: cfg.HTTPConnectTimeout,
	}, jar)

	if err := apiClient.AnonymousSession(ctx); err != nil {
		slog.Warn("anonymous session bootstrap failed", "error", err)
	}
	if err := authStore.Save(deviceID, jar); err != nil {
		slog.Warn("persist auth state", "error", err)
	}

	return apiClient, authStore, deviceID, jar, nil
}

// runTUI wires every collaborator and blocks on the reducer host loop until
// the TUI exits or a signal cancels the run. This is the `tui` subcommand
// (and the default when no subcommand is named).
func runTUI(args []string) {
	fs := flag.NewFlagSet("resonance tui", flag.ExitOnError)
	cfg := loadConfig(fs, args)

	logFile, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logFile.Close()

	slog.Info("starting resonance", "data_dir", cfg.DataDir, "api_domain", cfg.APIDomain)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	apiClient, authStore, deviceID, jar, err := bootstrapAPIClient(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap API client", "error", err)
		os.Exit(1)
	}

	settingsStore, err := settings.NewStore(filepath.Join(cfg.DataDir, "settings.json"))
	if err != nil {
		slog.Error("open settings store", "error", err)
		os.Exit(1)
	}
	savedSettings, err := settingsStore.Load()
	if err != nil {
		slog.Error("load settings", "error", err)
		os.Exit(1)
	}

	transferActor, err := transfer.New(filepath.Join(cfg.DataDir, "audio_cache"), transfer.Config{
		HTTPTimeout:        cfg.HTTPTimeout,
		HTTPConnectTimeout: cfg.HTTPConnectTimeout,
		Concurrency:        cfg.DownloadConcurrency,
		Retries:            cfg.DownloadRetries,
		RetryBackoff:       cfg.DownloadRetryBackoff,
		RetryBackoffMax:    cfg.DownloadRetryBackoffMax,
		CacheMaxBytes:      uint64(savedSettings.CacheMaxMB) << 20,
	})
	if err != nil {
		slog.Error("open transfer actor", "error", err)
		os.Exit(1)
	}

	engine := audio.NewEngine(device.New(), transferActor, savedSettings.CrossfadeMs)
	go engine.Run(ctx)

	q := queue.New()
	q.SetMode(savedSettings.Mode)

	prefetcher := prefetch.New(apiClient, engine, savedSettings.Bitrate)

	preloadMgr := preload.New(apiClient, savedSettings.PreloadCount)

	tr := reqtracker.New()
	state := reducer.New()
	state.Player.Volume = savedSettings.Volume
	state.Player.Bitrate = savedSettings.Bitrate
	state.Player.Mode = savedSettings.Mode
	state.Player.CrossfadeMs = savedSettings.CrossfadeMs
	state.Lyrics.Offset = savedSettings.LyricOffset
	state.Settings.Volume = savedSettings.Volume
	state.Settings.Bitrate = savedSettings.Bitrate
	state.Settings.Mode = savedSettings.Mode
	state.Settings.LyricOffset = savedSettings.LyricOffset
	state.Settings.CrossfadeMs = savedSettings.CrossfadeMs
	state.Settings.CacheMaxMB = savedSettings.CacheMaxMB
	state.Settings.PreloadCount = savedSettings.PreloadCount

	inbox := make(chan domain.Message, 256)
	snapshots := make(chan snapshot.Snapshot, 4)

	tui := tuiapp.New(snapshots, inbox)

	var latestSnapshot snapshotHolder

	if cfg.DebugHTTPAddr != "" {
		dbg := debugserver.New(cfg.DebugHTTPAddr, latestSnapshot.get, q, transferActor)
		go func() {
			if err := dbg.Run(ctx); err != nil {
				slog.Warn("debug server stopped", "error", err)
			}
		}()
	}

	go audioEventPump(ctx, engine, inbox)
	go loginTicker(ctx, inbox)
	go preloadEventPump(ctx, preloadMgr)

	go func() {
		if err := tui.Run(); err != nil {
			slog.Error("tui exited with error", "error", err)
		}
		cancel()
	}()

	hostLoop(ctx, &state, q, tr, apiClient, engine, prefetcher, preloadMgr, inbox, snapshots, &latestSnapshot)

	finalSettings := settings.FromMessage(domain.MsgSettingsChanged{
		Volume:       state.Player.Volume,
		Bitrate:      state.Player.Bitrate,
		Mode:         state.Player.Mode,
		LyricOffset:  state.Lyrics.Offset,
		CrossfadeMs:  state.Player.CrossfadeMs,
		CacheMaxMB:   savedSettings.CacheMaxMB,
		PreloadCount: savedSettings.PreloadCount,
	})
	if err := settingsStore.Save(finalSettings); err != nil {
		slog.Warn("persist settings on shutdown", "error", err)
	}
	if err := authStore.Save(deviceID, jar); err != nil {
		slog.Warn("persist auth state on shutdown", "error", err)
	}
	slog.Info("resonance stopped")
}

func parseLevel(filter string) slog.Level {
	switch filter {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// snapshotHolder is the mutex-guarded "latest snapshot" the debug server
// reads from a different goroutine than the one that builds it.
type snapshotHolder struct {
	mu  sync.Mutex
	cur snapshot.Snapshot
}

func (h *snapshotHolder) set(s snapshot.Snapshot) {
	h.mu.Lock()
	h.cur = s
	h.mu.Unlock()
}

func (h *snapshotHolder) get() snapshot.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}

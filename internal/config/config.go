// Package config resolves the CLI's flags, environment variables, and
// optional .env file into a single Config (spec §6), following
// config.Load's getEnv/getEnvAsInt shape from the teacher's server
// config, extended with a duration and a flag-overrides-env layer
// since this CLI also exposes global flags.
package config

import (
	"flag"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	DataDir   string
	LogDir    string
	LogFilter string
	Domain    string
	APIDomain string

	DebugHTTPAddr string

	HTTPTimeout             time.Duration
	HTTPConnectTimeout      time.Duration
	DownloadConcurrency     int
	DownloadRetries         int
	DownloadRetryBackoff    time.Duration
	DownloadRetryBackoffMax time.Duration
	CacheMaxMB              int64
}

// Load reads .env (if present, missing is not an error per godotenv's
// own contract), then environment variables, then applies any flags
// registered on fs that were explicitly set, with flags taking
// precedence. Call Load after flag.Parse (or fs.Parse) so explicitly set
// flag values are visible.
func Load(fs *flag.FlagSet) Config {
	_ = godotenv.Load()

	cpuCount := runtime.NumCPU()
	if cpuCount <= 0 {
		cpuCount = 4
	}

	cfg := Config{
		DataDir:   getEnv("AUDIO_DATA_DIR", defaultDataDir()),
		LogDir:    getEnv("AUDIO_LOG_DIR", defaultLogDir()),
		LogFilter: getEnv("AUDIO_LOG_FILTER", "info"),
		Domain:    getEnv("AUDIO_DOMAIN", "music.163.com"),
		APIDomain: getEnv("AUDIO_API_DOMAIN", "https://music.163.com"),

		DebugHTTPAddr: getEnv("AUDIO_DEBUG_HTTP_ADDR", ""),

		HTTPTimeout:             time.Duration(getEnvAsInt("AUDIO_HTTP_TIMEOUT_SECS", 30)) * time.Second,
		HTTPConnectTimeout:      time.Duration(getEnvAsInt("AUDIO_HTTP_CONNECT_TIMEOUT_SECS", 10)) * time.Second,
		DownloadConcurrency:     getEnvAsInt("AUDIO_DOWNLOAD_CONCURRENCY", cpuCount),
		DownloadRetries:         getEnvAsInt("AUDIO_DOWNLOAD_RETRIES", 2),
		DownloadRetryBackoff:    time.Duration(getEnvAsInt("AUDIO_DOWNLOAD_RETRY_BACKOFF_MS", 250)) * time.Millisecond,
		DownloadRetryBackoffMax: time.Duration(getEnvAsInt("AUDIO_DOWNLOAD_RETRY_BACKOFF_MAX_MS", 2000)) * time.Millisecond,
		CacheMaxMB:              int64(getEnvAsInt("AUDIO_CACHE_MAX_MB", 2048)),
	}

	if fs != nil {
		applyFlags(fs, &cfg)
	}
	return cfg
}

// RegisterFlags registers the global flags named in spec §6 onto fs,
// so cmd/resonance can call fs.Parse(os.Args[1:]) before Load.
func RegisterFlags(fs *flag.FlagSet) {
	fs.String("data-dir", "", "override AUDIO_DATA_DIR")
	fs.String("log-dir", "", "override AUDIO_LOG_DIR")
	fs.String("log-filter", "", "override AUDIO_LOG_FILTER")
	fs.String("domain", "", "override AUDIO_DOMAIN")
	fs.String("api-domain", "", "override AUDIO_API_DOMAIN")
	fs.String("debug-http", "", "override AUDIO_DEBUG_HTTP_ADDR")
}

func applyFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = f.Value.String()
		case "log-dir":
			cfg.LogDir = f.Value.String()
		case "log-filter":
			cfg.LogFilter = f.Value.String()
		case "domain":
			cfg.Domain = f.Value.String()
		case "api-domain":
			cfg.APIDomain = f.Value.String()
		case "debug-http":
			cfg.DebugHTTPAddr = f.Value.String()
		}
	})
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.local/share/resonance"
	}
	return "./data"
}

func defaultLogDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.local/state/resonance"
	}
	return "./logs"
}

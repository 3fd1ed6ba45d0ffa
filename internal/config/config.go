// Package config loads CLI settings from defaults, an optional roster.yaml
// or roster.toml, ROSTER_ environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ecoles/roster/internal/match"
)

// Keys understood by Load.
const (
	KeyRoot             = "root"
	KeyWeek             = "week"
	KeyVerbose          = "verbose"
	KeyWatchInterval    = "watch.interval"
	KeyFailureThreshold = "watch.failure_threshold"
	KeyJournalPath      = "journal.path"
	KeyLogFile          = "log.file"
	KeyLogMaxSize       = "log.max_size_mb"
	KeyMatchPolicy      = "match.policy"
	KeyDashboardPort    = "dashboard.port"
)

// EnvPrefix prefixes environment overrides: ROSTER_WATCH_INTERVAL and so on.
const EnvPrefix = "ROSTER"

// FileName is the config file base name, without extension.
const FileName = "roster"

// Config is the resolved configuration.
type Config struct {
	Root             string
	Week             int
	Verbose          bool
	WatchInterval    time.Duration
	FailureThreshold int
	JournalPath      string
	LogFile          string
	LogMaxSizeMB     int
	MatchPolicy      match.Policy
	DashboardPort    int

	// File is the config file that was read, if any.
	File string
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyWeek, 0)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyWatchInterval, time.Second)
	v.SetDefault(KeyFailureThreshold, 5)
	v.SetDefault(KeyJournalPath, "")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSize, 10)
	v.SetDefault(KeyMatchPolicy, "first")
	v.SetDefault(KeyDashboardPort, 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the flags of fs that share a name with a key, with
// dashes standing for dots or underscores (--watch-interval binds
// watch.interval, --watch-failure-threshold binds watch.failure_threshold).
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKey(f.Name)
		if !ok {
			return
		}
		if berr := v.BindPFlag(key, f); berr != nil && err == nil {
			err = fmt.Errorf("failed to bind flag --%s: %w", f.Name, berr)
		}
	})
	return err
}

var keys = []string{
	KeyRoot, KeyWeek, KeyVerbose, KeyWatchInterval, KeyFailureThreshold,
	KeyJournalPath, KeyLogFile, KeyLogMaxSize, KeyMatchPolicy, KeyDashboardPort,
}

// flagKey maps a flag name to a key. The first dash may stand for the
// section dot and the others for underscores.
func flagKey(name string) (string, bool) {
	section := strings.Replace(name, "-", ".", 1)
	for _, key := range []string{
		strings.ReplaceAll(name, "-", "."),
		strings.ReplaceAll(name, "-", "_"),
		strings.ReplaceAll(section, "-", "_"),
	} {
		if known(key) {
			return key, true
		}
	}
	return "", false
}

func known(key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// Load reads the optional config file from the weeks root, then from
// $HOME/.config/roster, and resolves every key.
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigName(FileName)
	v.AddConfigPath(v.GetString(KeyRoot))
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "roster"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	policy, err := match.ParsePolicy(v.GetString(KeyMatchPolicy))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Root:             v.GetString(KeyRoot),
		Week:             v.GetInt(KeyWeek),
		Verbose:          v.GetBool(KeyVerbose),
		WatchInterval:    v.GetDuration(KeyWatchInterval),
		FailureThreshold: v.GetInt(KeyFailureThreshold),
		JournalPath:      v.GetString(KeyJournalPath),
		LogFile:          v.GetString(KeyLogFile),
		LogMaxSizeMB:     v.GetInt(KeyLogMaxSize),
		MatchPolicy:      policy,
		DashboardPort:    v.GetInt(KeyDashboardPort),
		File:             v.ConfigFileUsed(),
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = filepath.Join(cfg.Root, ".roster", "journal.db")
	}
	if cfg.WatchInterval <= 0 {
		return nil, fmt.Errorf("invalid %s %q", KeyWatchInterval, v.GetString(KeyWatchInterval))
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("invalid %s %d", KeyFailureThreshold, cfg.FailureThreshold)
	}
	return cfg, nil
}

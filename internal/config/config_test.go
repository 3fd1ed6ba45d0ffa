package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/ecoles/roster/internal/match"
)

// isolate points HOME at an empty directory so a developer config does not
// leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return t.TempDir()
}

func TestLoadDefaults(t *testing.T) {
	root := isolate(t)
	v := New()
	v.Set(KeyRoot, root)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Week != 0 || cfg.WatchInterval != time.Second || cfg.FailureThreshold != 5 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.MatchPolicy != match.FirstFound || cfg.LogMaxSizeMB != 10 || cfg.DashboardPort != 0 {
		t.Errorf("defaults = %+v", cfg)
	}
	if want := filepath.Join(root, ".roster", "journal.db"); cfg.JournalPath != want {
		t.Errorf("JournalPath = %q, want %q", cfg.JournalPath, want)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
}

func TestLoadPrecedence(t *testing.T) {
	root := isolate(t)
	doc := "week: 3\nwatch:\n  interval: 2s\n  failure_threshold: 7\nmatch:\n  policy: strict\n"
	if err := os.WriteFile(filepath.Join(root, "roster.yaml"), []byte(doc), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("ROSTER_WATCH_INTERVAL", "5s")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("root", ".", "")
	fs.Int("week", 0, "")
	fs.String("journal-path", "", "")
	fs.Int("dashboard-port", 0, "")
	fs.Bool("yes", false, "")
	if err := fs.Parse([]string{"--root", root, "--week", "4", "--dashboard-port", "8090"}); err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	v := New()
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags() failed: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"flag over file", cfg.Week, 4},
		{"env over file", cfg.WatchInterval, 5 * time.Second},
		{"file over default", cfg.FailureThreshold, 7},
		{"file policy", cfg.MatchPolicy, match.RejectAmbiguous},
		{"dashed flag", cfg.DashboardPort, 8090},
		{"config file", cfg.File, filepath.Join(root, "roster.yaml")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadTOML(t *testing.T) {
	root := isolate(t)
	doc := "[log]\nfile = \"roster.log\"\nmax_size_mb = 3\n"
	if err := os.WriteFile(filepath.Join(root, "roster.toml"), []byte(doc), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	v := New()
	v.Set(KeyRoot, root)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LogFile != "roster.log" || cfg.LogMaxSizeMB != 3 {
		t.Errorf("log settings = %q, %d", cfg.LogFile, cfg.LogMaxSizeMB)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"policy":    "ROSTER_MATCH_POLICY",
		"interval":  "ROSTER_WATCH_INTERVAL",
		"threshold": "ROSTER_WATCH_FAILURE_THRESHOLD",
	}
	values := map[string]string{
		"policy":    "fuzzy",
		"interval":  "0s",
		"threshold": "-1",
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			root := isolate(t)
			t.Setenv(env, values[name])
			v := New()
			v.Set(KeyRoot, root)
			if _, err := Load(v); err == nil {
				t.Errorf("Load() with %s=%s should fail", env, values[name])
			}
		})
	}
}

func TestFlagKey(t *testing.T) {
	tests := []struct {
		flag string
		want string
		ok   bool
	}{
		{"root", KeyRoot, true},
		{"watch-interval", KeyWatchInterval, true},
		{"watch-failure-threshold", KeyFailureThreshold, true},
		{"log-max-size-mb", KeyLogMaxSize, true},
		{"dashboard-port", KeyDashboardPort, true},
		{"match-policy", KeyMatchPolicy, true},
		{"yes", "", false},
		{"prune", "", false},
	}
	for _, tt := range tests {
		got, ok := flagKey(tt.flag)
		if got != tt.want || ok != tt.ok {
			t.Errorf("flagKey(%q) = %q, %v, want %q, %v", tt.flag, got, ok, tt.want, tt.ok)
		}
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"ARGUS_CONFIG", "ADDR", "LOG_DIR", "LOG_LEVEL", "WORKERS", "QUEUE_SIZE",
		"SHUTDOWN_GRACE", "PING_PRIVILEGED", "MEMORY_LOG_INTERVAL", "ALLOWED_ORIGINS", "API_RATE_PER_MIN", "API_BURST"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ConfigPath != "argus.json" || cfg.LogDir != "logs" || cfg.LogLevel != "info" {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if cfg.Workers != 4 || cfg.QueueSize != 0 || cfg.ShutdownGrace != 5*time.Second {
		t.Fatalf("pool defaults wrong: %+v", cfg)
	}
	if cfg.MemoryLogInterval != 5*time.Minute || cfg.PingPrivileged || cfg.Addr != "" {
		t.Fatalf("misc defaults wrong: %+v", cfg)
	}
	if cfg.APIRatePerMin != 0 || cfg.APIBurst != 20 {
		t.Fatalf("rate defaults wrong: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("origins should be empty: %v", cfg.AllowedOrigins)
	}
}

func TestFromEnv_Parses(t *testing.T) {
	t.Setenv("ARGUS_CONFIG", "/etc/argus/argus.json")
	t.Setenv("ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WORKERS", "8")
	t.Setenv("QUEUE_SIZE", "32")
	t.Setenv("SHUTDOWN_GRACE", "2s")
	t.Setenv("PING_PRIVILEGED", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ConfigPath != "/etc/argus/argus.json" || cfg.Addr != ":9090" || cfg.LogLevel != "debug" {
		t.Fatalf("wrong: %+v", cfg)
	}
	if cfg.Workers != 8 || cfg.QueueSize != 32 || cfg.ShutdownGrace != 2*time.Second || !cfg.PingPrivileged {
		t.Fatalf("wrong: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins wrong: %q", cfg.AllowedOrigins)
	}
}

func TestFromEnv_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"zero workers": {"WORKERS", "0"},
		"not a number": {"WORKERS", "four"},
		"bad level":    {"LOG_LEVEL", "verbose"},
		"bad grace":    {"SHUTDOWN_GRACE", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("want error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Mode != "tui" {
		t.Fatalf("expected tui mode, got %q", cfg.Mode)
	}
	if cfg.Scanner.ProbeTimeout() != 500*time.Millisecond {
		t.Fatalf("expected 500ms timeout, got %v", cfg.Scanner.ProbeTimeout())
	}
	if cfg.Scanner.Concurrency != 200 {
		t.Fatalf("expected concurrency 200, got %d", cfg.Scanner.Concurrency)
	}
	if cfg.Report.Dir != "." || len(cfg.Report.Formats) != 1 || cfg.Report.Formats[0] != "txt" {
		t.Fatalf("unexpected report defaults: %+v", cfg.Report)
	}
	if !cfg.Resolver.CacheEnabled || cfg.Resolver.CacheTTL != 300 {
		t.Fatalf("unexpected resolver defaults: %+v", cfg.Resolver)
	}
	if cfg.RabbitMQ.Enabled {
		t.Fatal("rabbitmq should be disabled by default")
	}
	if cfg.Server.Retention() != time.Hour {
		t.Fatalf("expected one hour job retention, got %v", cfg.Server.Retention())
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("scanner:\n  timeout: 750\n  concurrency: 9000\nreport:\n  formats: [txt, pdf]\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORTSCAN_SERVER_PORT", "9100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse([]string{"--config", path, "--mode", "serve", "--rate-limit", "50"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Scanner.Timeout != 750 {
		t.Fatalf("expected timeout from file, got %d", cfg.Scanner.Timeout)
	}
	if cfg.Scanner.Concurrency != MaxConcurrency {
		t.Fatalf("expected concurrency capped at %d, got %d", MaxConcurrency, cfg.Scanner.Concurrency)
	}
	if len(cfg.Report.Formats) != 2 || cfg.Report.Formats[1] != "pdf" {
		t.Fatalf("expected formats from file, got %v", cfg.Report.Formats)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("expected port from env, got %d", cfg.Server.Port)
	}
	if cfg.Mode != "serve" {
		t.Fatalf("expected mode from flag, got %q", cfg.Mode)
	}
	if cfg.Scanner.RateLimit != 50 {
		t.Fatalf("expected rate limit from flag, got %d", cfg.Scanner.RateLimit)
	}
}

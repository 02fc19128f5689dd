package main

import (
	"testing"

	"github.com/danmuck/duploctl/internal/config"
	"github.com/danmuck/duploctl/internal/testutil/testlog"
)

func TestExampleConfigLoads(t *testing.T) {
	testlog.Start(t)
	cfg, err := config.Load("ex.config.toml")
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.HTTP.Addr != ":9300" {
		t.Fatalf("unexpected http addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Toothbrush.Enabled {
		t.Fatalf("example enables the toothbrush bridge")
	}
}

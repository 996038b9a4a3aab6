package bootstrap

import (
	"strings"
	"testing"
)

func TestDefaultVerifyURLTargetsMountedRoute(t *testing.T) {
	cfg, err := LoadConfig("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	// Verification links are emailed out; the default must point at the path
	// the router actually mounts or a bare checkout mails dead links.
	if !strings.HasSuffix(cfg.VerifyURLBase, "/auth/verify-email") {
		t.Fatalf("verify url base %q does not target the verify-email route", cfg.VerifyURLBase)
	}
	if strings.Contains(cfg.VerifyURLBase, "/api/") {
		t.Fatalf("verify url base %q carries a prefix the router never mounts", cfg.VerifyURLBase)
	}
}

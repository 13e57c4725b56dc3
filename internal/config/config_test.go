package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/drawsync/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drawsync.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplateRoundTripsToDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "drawsync.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadPeerFile(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if diff := cmp.Diff(DefaultPeerFile(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("template drifted from defaults (-want +got):\n%s", diff)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite existing config")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}

func TestLoadPeerFileOverlaysDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, `
remote_host = "studio.local"
remote_port = 2100
heartbeat = "5s"
admin_addr = "127.0.0.1:7010"
`)
	cfg, err := LoadPeerFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := DefaultPeerFile()
	want.RemoteHost = "studio.local"
	want.RemotePort = 2100
	want.Heartbeat = "5s"
	want.AdminAddr = "127.0.0.1:7010"
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadPeerFileRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"unknown key":      `colour = "red"`,
		"port range":       `listen_port = 70000`,
		"remote port zero": `remote_port = 0`,
		"bad duration":     `heartbeat = "soon"`,
		"negative rate":    `inbound_rate = -1.0`,
		"blank host":       `remote_host = "   "`,
		"canvas size":      `canvas_width = 0`,
	}
	for name, body := range cases {
		_, err := LoadPeerFile(writeFile(t, body))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if name != "unknown key" && !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestTemplateMentionsKeys(t *testing.T) {
	out, err := Template()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	for _, key := range []string{"listen_port", "remote_host", "remote_port", "heartbeat"} {
		if !strings.Contains(out, key) {
			t.Fatalf("template missing %q:\n%s", key, out)
		}
	}
}

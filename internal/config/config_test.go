package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "router.yaml")
	if err := os.WriteFile(path, []byte("listen_address: \":8080\"\nrealms: [\"realm1\"]\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.AdminAddress != ":8081" {
		t.Fatalf("expected default admin address, got %q", c.AdminAddress)
	}
	if c.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", c.LogLevel)
	}
}

func TestLoadRejectsMissingListenAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "router.yaml")
	if err := os.WriteFile(path, []byte("realms: [\"realm1\"]\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing listen address")
	}
}

func TestLoadRejectsAuthEnabledWithoutSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "router.yaml")
	body := "listen_address: \":8080\"\nrealms: [\"realm1\"]\nauth_enabled: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for auth enabled without a secret")
	}
}

func TestValidateRejectsNoRealms(t *testing.T) {
	c := NewConfig(":8080", nil)
	c.Realms = nil
	if err := c.Validate(); err != ErrNoRealms {
		t.Fatalf("expected ErrNoRealms, got %v", err)
	}
}

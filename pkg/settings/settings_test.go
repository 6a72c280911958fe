package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetListenAddr(); got != DefaultListenAddr {
		t.Errorf("GetListenAddr() default = %q, want %q", got, DefaultListenAddr)
	}
	if got := s.GetAuditMaxSizeMB(); got != DefaultAuditMaxSizeMB {
		t.Errorf("GetAuditMaxSizeMB() default = %d, want %d", got, DefaultAuditMaxSizeMB)
	}
	if got := s.GetAuditMaxBackups(); got != DefaultAuditMaxBackups {
		t.Errorf("GetAuditMaxBackups() default = %d, want %d", got, DefaultAuditMaxBackups)
	}
	if s.NSA != "" {
		t.Errorf("NSA should be empty, got %q", s.NSA)
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		NSA:          "urn:ogf:network:nsa:example",
		RedisAddr:    "localhost:6379",
		TopologyFile: "/etc/aggnsa/topology.yaml",
	}

	s.Clear()

	if s.NSA != "" || s.RedisAddr != "" || s.TopologyFile != "" {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "aggnsa-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")

	original := &Settings{
		NSA:          "urn:ogf:network:nsa:example",
		RedisAddr:    "localhost:6379",
		TopologyFile: "/etc/aggnsa/topology.yaml",
		Peers: map[string]string{
			"urn:ogf:network:nsa:peer": "peer.example.net:9080",
		},
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if loaded.NSA != original.NSA {
		t.Errorf("NSA mismatch: got %q, want %q", loaded.NSA, original.NSA)
	}
	if loaded.RedisAddr != original.RedisAddr {
		t.Errorf("RedisAddr mismatch: got %q, want %q", loaded.RedisAddr, original.RedisAddr)
	}
	if loaded.TopologyFile != original.TopologyFile {
		t.Errorf("TopologyFile mismatch: got %q, want %q", loaded.TopologyFile, original.TopologyFile)
	}
	if loaded.Peers["urn:ogf:network:nsa:peer"] != "peer.example.net:9080" {
		t.Errorf("Peers mismatch: got %v", loaded.Peers)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.NSA != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidYAML(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "aggnsa-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte("nsa: [this is not\n  a valid map"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err = LoadFrom(path)
	if err == nil {
		t.Error("LoadFrom() with invalid YAML should error")
	}
}

func TestSettings_SaveCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "aggnsa-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "subdir", "nested", "config.yaml")

	s := &Settings{NSA: "urn:ogf:network:nsa:example"}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	path := DefaultSettingsPath()
	if path == "" {
		t.Error("DefaultSettingsPath() should not be empty")
	}
	if !filepath.IsAbs(path) && path != "aggnsa_config.yaml" {
		t.Errorf("DefaultSettingsPath() should be absolute or fallback, got %q", path)
	}
}

func TestSettings_ExecuteByDefault(t *testing.T) {
	s := &Settings{ExecuteByDefault: true}

	tmpDir, err := os.MkdirTemp("", "aggnsa-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if !loaded.ExecuteByDefault {
		t.Error("ExecuteByDefault should be preserved after save/load")
	}
}

func TestSettings_AuthPolicy(t *testing.T) {
	s := &Settings{
		SuperUsers: []string{"admin"},
		IdentityGroups: map[string][]string{
			"neteng": {"alice"},
		},
		Permissions: map[string][]string{
			"reserve": {"neteng"},
		},
		NetworkPermissions: map[string]map[string][]string{
			"urn:ogf:network:customer.net": {"reserve": {"neteng"}},
		},
	}

	policy := s.AuthPolicy()
	if len(policy.SuperUsers) != 1 || policy.SuperUsers[0] != "admin" {
		t.Errorf("AuthPolicy().SuperUsers = %v", policy.SuperUsers)
	}
	if len(policy.IdentityGroups["neteng"]) != 1 {
		t.Errorf("AuthPolicy().IdentityGroups = %v", policy.IdentityGroups)
	}
	if len(policy.NetworkPermissions) != 1 {
		t.Errorf("AuthPolicy().NetworkPermissions = %v", policy.NetworkPermissions)
	}
}

func TestLoad(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	tmpDir, err := os.MkdirTemp("", "aggnsa-test-home-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	os.Setenv("HOME", tmpDir)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() with non-existent file should not error: %v", err)
	}
	if s == nil {
		t.Fatal("Load() should return non-nil Settings")
	}
	if s.NSA != "" {
		t.Error("Load() with non-existent file should return empty settings")
	}

	aggnsaDir := filepath.Join(tmpDir, ".aggnsa")
	if err := os.MkdirAll(aggnsaDir, 0755); err != nil {
		t.Fatalf("Failed to create .aggnsa dir: %v", err)
	}

	settingsPath := filepath.Join(aggnsaDir, "config.yaml")
	testSettings := "nsa: urn:ogf:network:nsa:test\nredis_addr: localhost:6379\n"
	if err := os.WriteFile(settingsPath, []byte(testSettings), 0644); err != nil {
		t.Fatalf("Failed to write test settings: %v", err)
	}

	s, err = Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if s.NSA != "urn:ogf:network:nsa:test" {
		t.Errorf("Load() NSA = %q, want %q", s.NSA, "urn:ogf:network:nsa:test")
	}
	if s.RedisAddr != "localhost:6379" {
		t.Errorf("Load() RedisAddr = %q, want %q", s.RedisAddr, "localhost:6379")
	}
}

func TestSave(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	tmpDir, err := os.MkdirTemp("", "aggnsa-test-home-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	os.Setenv("HOME", tmpDir)

	s := &Settings{
		NSA:       "urn:ogf:network:nsa:saved",
		RedisAddr: "localhost:6379",
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, ".aggnsa", "config.yaml")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Save() did not create file at %s", expectedPath)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}
	if loaded.NSA != "urn:ogf:network:nsa:saved" {
		t.Errorf("After Save(), NSA = %q, want %q", loaded.NSA, "urn:ogf:network:nsa:saved")
	}
}

func TestDefaultSettingsPath_NoHome(t *testing.T) {
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)

	os.Unsetenv("HOME")

	path := DefaultSettingsPath()
	if path != "aggnsa_config.yaml" {
		t.Errorf("DefaultSettingsPath() with no HOME = %q, want %q", path, "aggnsa_config.yaml")
	}
}

func TestLoadFrom_ReadError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "aggnsa-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dirAsFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.Mkdir(dirAsFile, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	_, err = LoadFrom(dirAsFile)
	if err == nil {
		t.Error("LoadFrom() should error when path is a directory")
	}
}

func TestSaveTo_MkdirError(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "aggnsa-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	blockingFile := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blockingFile, []byte("blocking"), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	path := filepath.Join(blockingFile, "subdir", "config.yaml")
	s := &Settings{NSA: "test"}

	err = s.SaveTo(path)
	if err == nil {
		t.Error("SaveTo() should fail when directory creation fails")
	}
}

package main

import "testing"

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("TUNNELCORE_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("TUNNELCORE_CONFIG", "/etc/tunnelcore/config.yaml")
	if got := getConfigPath(); got != "/etc/tunnelcore/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

func TestMirrorOrNil(t *testing.T) {
	if mirrorOrNil(nil) != nil {
		t.Error("nil client should yield a nil interface, not a typed nil")
	}
}

package main

import (
	"testing"
)

func TestNewLoggerVerboseIsDebugLevel(t *testing.T) {
	logger, err := newLogger(true)
	if err != nil {
		t.Fatalf("newLogger(true): %v", err)
	}
	if !logger.Core().Enabled(-1) { // zapcore.DebugLevel
		t.Fatal("verbose logger should have debug logging enabled")
	}
}

func TestNewLoggerDefaultIsInfoLevel(t *testing.T) {
	logger, err := newLogger(false)
	if err != nil {
		t.Fatalf("newLogger(false): %v", err)
	}
	if logger.Core().Enabled(-1) { // zapcore.DebugLevel
		t.Fatal("the default production logger should not have debug logging enabled")
	}
	if !logger.Core().Enabled(0) { // zapcore.InfoLevel
		t.Fatal("the default production logger should have info logging enabled")
	}
}

func TestNewRunCommandRequiresConfigFlag(t *testing.T) {
	cmd := newRunCommand()
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error when --config is not supplied")
	}
}

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLogFilePathDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if filepath.Base(filepath.Dir(got)) != defaultLogDirName {
		t.Fatalf("unexpected log dir: %s", filepath.Dir(got))
	}
	if _, err := os.Stat(filepath.Dir(got)); err != nil {
		t.Fatalf("expected log dir to be created: %v", err)
	}
}

func TestBuildReleaseWritesRotatingFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := build("release", Options{
		Dir:      tmpDir,
		Filename: "reconcile.log",
	})
	log.Info("wallet_credit_applied")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "reconcile.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "wallet_credit_applied") {
		t.Fatalf("expected log content to contain event, got=%s", string(content))
	}
}

func TestBuildDebugStaysOnConsole(t *testing.T) {
	tmpDir := t.TempDir()
	log := build("debug", Options{
		Dir:      tmpDir,
		Filename: "debug.log",
	})
	log.Debug("webhook_received")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestZFallsBackBeforeInit(t *testing.T) {
	old := L
	L = nil
	t.Cleanup(func() { L = old })

	if Z() == nil {
		t.Fatal("Z must never return nil")
	}
	if S() == nil {
		t.Fatal("S must never return nil")
	}
}

func TestPositiveOr(t *testing.T) {
	if got := positiveOr(0, 7); got != 7 {
		t.Fatalf("zero should fall back, got %d", got)
	}
	if got := positiveOr(-3, 7); got != 7 {
		t.Fatalf("negative should fall back, got %d", got)
	}
	if got := positiveOr(14, 7); got != 14 {
		t.Fatalf("positive should pass through, got %d", got)
	}
}

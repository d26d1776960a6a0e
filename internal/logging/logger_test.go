package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	logLevel = LevelInfo
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".majordomo")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
  categories:
    boot: true
    session: true
    guard: true
    planner: true
    engine: true
    stream: true
    tools: true
    api: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategorySession,
		CategoryGuard,
		CategoryPlanner,
		CategoryEngine,
		CategoryStream,
		CategoryTools,
		CategoryAPI,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}

		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	// Convenience functions
	Boot("Convenience boot log")
	Session("Convenience session log")
	Guard("Convenience guard log")
	Planner("Convenience planner log")
	Engine("Convenience engine log")
	Stream("Convenience stream log")
	Tools("Convenience tools log")
	API("Convenience api log")

	CloseAll()

	logsPath := filepath.Join(tempDir, ".majordomo", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil {
					t.Errorf("Failed to read log file for %s: %v", cat, err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("Log file for %s is empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: false
  categories:
    boot: true
    engine: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsDebugMode() {
		t.Error("Expected debug mode to be DISABLED")
	}

	for _, cat := range []Category{CategoryBoot, CategoryEngine, CategoryStream} {
		if IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be DISABLED when debug_mode=false", cat)
		}
	}

	// All no-ops
	Boot("This should NOT be logged")
	Engine("This should NOT be logged")

	logger := Get(CategoryBoot)
	logger.Info("This should NOT be logged")
	logger.Error("This should NOT be logged")

	CloseAll()

	logsPath := filepath.Join(tempDir, ".majordomo", "logs")
	if _, err := os.Stat(logsPath); err == nil {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("Expected NO log files in production mode, found %d", len(entries))
		}
	}
}

// TestCategoryToggle tests individual category enable/disable
func TestCategoryToggle(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
  categories:
    boot: true
    engine: true
    stream: false
    tools: false
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be enabled")
	}
	if !IsCategoryEnabled(CategoryEngine) {
		t.Error("engine should be enabled")
	}
	if IsCategoryEnabled(CategoryStream) {
		t.Error("stream should be DISABLED")
	}
	if IsCategoryEnabled(CategoryTools) {
		t.Error("tools should be DISABLED")
	}

	// Category not in config defaults to enabled when debug_mode=true
	if !IsCategoryEnabled(CategoryGuard) {
		t.Error("guard (not in config) should default to enabled")
	}

	Boot("This SHOULD be logged")
	Engine("This SHOULD be logged")
	Stream("This should NOT be logged")
	Tools("This should NOT be logged")

	CloseAll()

	logsPath := filepath.Join(tempDir, ".majordomo", "logs")
	entries, _ := os.ReadDir(logsPath)

	var hasBoot, hasEngine, hasStream, hasTools bool
	for _, e := range entries {
		name := e.Name()
		if strings.Contains(name, "boot") {
			hasBoot = true
		}
		if strings.Contains(name, "engine") {
			hasEngine = true
		}
		if strings.Contains(name, "stream") {
			hasStream = true
		}
		if strings.Contains(name, "tools") {
			hasTools = true
		}
	}

	if !hasBoot {
		t.Error("Expected boot log file")
	}
	if !hasEngine {
		t.Error("Expected engine log file")
	}
	if hasStream {
		t.Error("Should NOT have stream log file (disabled)")
	}
	if hasTools {
		t.Error("Should NOT have tools log file (disabled)")
	}
}

// TestTimerLogging tests the timing helper
func TestTimerLogging(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	timer := StartTimer(CategoryEngine, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()

	if elapsed <= 0 {
		t.Error("Timer should have recorded non-zero duration")
	}

	timer = StartTimer(CategoryEngine, "SlowOperation")
	time.Sleep(2 * time.Millisecond)
	if got := timer.StopWithThreshold(time.Millisecond); got <= 0 {
		t.Error("StopWithThreshold should have recorded non-zero duration")
	}

	CloseAll()
}

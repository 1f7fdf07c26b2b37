package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testPlatformYAML = `
board: sim-test
domains:
  - name: gpu_cx
    windows:
      main: {region: gpucc, offset: 0x9108}
    flags:
      hw_trigger: true
  - name: gpu_gx
    windows:
      main: {region: gpucc, offset: 0x905c}
    parent: gpu_cx
`

// writeTestConfig writes a config file plus platform description into
// tmpDir and returns the config path. MQTT and InfluxDB stay disabled
// so the daemon starts without external services.
func writeTestConfig(t *testing.T, tmpDir string, sim bool) string {
	t.Helper()

	platformPath := filepath.Join(tmpDir, "platform.yaml")
	if err := os.WriteFile(platformPath, []byte(testPlatformYAML), 0600); err != nil {
		t.Fatalf("failed to write platform description: %v", err)
	}

	simValue := "false"
	if sim {
		simValue = "true"
	}
	configContent := `
site:
  id: test-site

platform:
  file: "` + platformPath + `"
  sim: ` + simValue + `

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18943
  timeouts:
    read: 30
    write: 60
    idle: 120
`
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("RAILGATE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingPlatformFile verifies run fails when the platform
// description does not exist.
func TestRun_MissingPlatformFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, true)

	if err := os.Remove(filepath.Join(tmpDir, "platform.yaml")); err != nil {
		t.Fatalf("failed to remove platform description: %v", err)
	}
	t.Setenv("RAILGATE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with missing platform description")
	}
}

// TestRun_HardwareBackendRejected verifies run refuses to start against
// mapped hardware windows, only the simulator ships in this build.
func TestRun_HardwareBackendRejected(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, false)
	t.Setenv("RAILGATE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when platform.sim is false")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("RAILGATE_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("RAILGATE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_SimulatedStartupAndShutdown runs the full daemon over the
// simulator until the context deadline triggers a clean shutdown.
func TestRun_SimulatedStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, true)
	t.Setenv("RAILGATE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		// Port 18943 may be taken on a shared test host.
		t.Logf("run() returned error: %v", err)
	}
}

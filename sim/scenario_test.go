package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenarioConfig_ValidYAML(t *testing.T) {
	yaml := `
seed: 42
pairs: 5
positions: 4
cadence_ticks: 100
travel_ticks: 10000
window_ticks: 20
channel_delay_ticks: 5000
success_probability: 0.25
`
	path := writeTempYAML(t, yaml)
	cfg, err := LoadScenarioConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Errorf("expected seed 42, got %v", cfg.Seed)
	}
	if cfg.Pairs == nil || *cfg.Pairs != 5 {
		t.Errorf("expected pairs 5, got %v", cfg.Pairs)
	}
	if cfg.CadenceTicks == nil || *cfg.CadenceTicks != 100 {
		t.Errorf("expected cadence 100, got %v", cfg.CadenceTicks)
	}
	if cfg.SuccessProbability == nil || *cfg.SuccessProbability != 0.25 {
		t.Errorf("expected success probability 0.25, got %v", cfg.SuccessProbability)
	}
}

func TestLoadScenarioConfig_UnsetFieldsStayNil(t *testing.T) {
	path := writeTempYAML(t, "pairs: 2\n")
	cfg, err := LoadScenarioConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Nil(t, cfg.Seed)
	assert.Nil(t, cfg.CadenceTicks)
	assert.Nil(t, cfg.SuccessProbability)
	assert.NotNil(t, cfg.Pairs)
}

func TestLoadScenarioConfig_RejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"zero pairs", "pairs: 0\n", "pairs"},
		{"negative travel", "travel_ticks: -1\n", "travel_ticks"},
		{"zero window", "window_ticks: 0\n", "window_ticks"},
		{"probability above one", "success_probability: 1.5\n", "success_probability"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempYAML(t, tc.yaml)
			_, err := LoadScenarioConfig(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadScenarioConfig_MissingFile(t *testing.T) {
	_, err := LoadScenarioConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

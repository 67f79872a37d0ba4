package node

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	yaml "github.com/goccy/go-yaml"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Parallel()
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if len(cfg.Tasks) != int(NumTasks) {
			t.Fatalf("Load(%q): %d tasks", path, len(cfg.Tasks))
		}
		if cfg.Stream.Capacity != 15 || cfg.Stream.Message != "\n100 ms" {
			t.Fatalf("Load(%q): stream = %+v", path, cfg.Stream)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yml", `
run_ms: 500
runtime_stats: true
tasks:
  - name: L1
    period_ms: 20
    deadline_ms: 15
    stack_words: 128
    busy_us: 4000
stimulus:
  - port: 1
    pin: 0
    at_ms: 10
    level: high
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunMS != 500 || !cfg.RuntimeStats {
		t.Fatalf("run_ms = %d, runtime_stats = %v", cfg.RunMS, cfg.RuntimeStats)
	}
	l1, ok := cfg.Task("L1")
	if !ok || l1.PeriodMS != 20 || l1.DeadlineMS != 15 || l1.StackWords != 128 || l1.BusyUS != 4000 {
		t.Fatalf("L1 = %+v", l1)
	}
	// tasks left out keep their default timing
	if b1, ok := cfg.Task("B1"); !ok || b1.PeriodMS != 50 {
		t.Fatalf("B1 = %+v", b1)
	}
	if len(cfg.Stimulus) != 1 || cfg.Stimulus[0].AtMS != 10 {
		t.Fatalf("stimulus = %+v", cfg.Stimulus)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.toml", `
run_ms = 250

[[tasks]]
name = "L2"
period_ms = 200
busy_us = 1000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunMS != 250 {
		t.Fatalf("run_ms = %d", cfg.RunMS)
	}
	l2, ok := cfg.Task("L2")
	if !ok || l2.PeriodMS != 200 || l2.DeadlineMS != 200 || l2.BusyUS != 1000 {
		t.Fatalf("L2 = %+v", l2)
	}
	if len(cfg.Stimulus) == 0 {
		t.Fatal("default stimulus dropped")
	}
}

func TestLoadRejects(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"deadline beyond period": "tasks:\n  - name: L1\n    period_ms: 10\n    deadline_ms: 20\n",
		"unknown task":           "tasks:\n  - name: L3\n    period_ms: 10\n",
		"zero period":            "tasks:\n  - name: Rx\n    period_ms: 0\n",
		"message too long":       "stream:\n  message: \"0123456789\"\n  length: 4\n",
		"not yaml":               "tasks: [",
		"duplicate task":         "tasks:\n  - name: L1\n    period_ms: 10\n  - name: L1\n    period_ms: 20\n",
	}
	for name, body := range cases {
		path := writeFile(t, "config.yml", body)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestValidateRejectsDuplicateTask(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Tasks = append(cfg.Tasks, TaskConfig{Name: "Rx", PeriodMS: 40, DeadlineMS: 40})
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "Rx") {
		t.Fatalf("Validate = %v, want duplicate Rx error", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	b, err := DefaultConfig().Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), "period_ms") {
		t.Fatalf("yaml lacks task timing:\n%s", b)
	}
	var back Config
	if err := yaml.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back.Tasks) != int(NumTasks) || back.Stream.Message != "\n100 ms" {
		t.Fatalf("round trip lost data: %+v", back)
	}
}

func TestTicksAndCycles(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if got := cfg.Ticks(50); got != 50 {
		t.Fatalf("Ticks(50) = %d", got)
	}
	if got := cfg.Cycles(5000); got != 5000 {
		t.Fatalf("Cycles(5000) = %d", got)
	}
}

func TestAnalyzeDefaultTaskSet(t *testing.T) {
	t.Parallel()
	a := DefaultConfig().Analyze()
	if math.Abs(a.Utilization-0.62) > 1e-9 {
		t.Fatalf("utilization = %.4f, want 0.62", a.Utilization)
	}
	if a.Density != a.Utilization {
		t.Fatalf("density %.4f differs with implicit deadlines", a.Density)
	}
	if !a.Schedulable() {
		t.Fatal("default task set reported unschedulable")
	}

	cfg := DefaultConfig()
	setBusy(&cfg, "L2", 60000)
	if cfg.Analyze().Schedulable() {
		t.Fatal("110% task set reported schedulable")
	}
}

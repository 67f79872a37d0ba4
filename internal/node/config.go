package node

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	yaml "github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"rtnode/internal/gpio"
	"rtnode/internal/sched"
)

// TaskConfig is the timing of one task in the registration table.
type TaskConfig struct {
	Name       string `yaml:"name" toml:"name"`
	PeriodMS   int    `yaml:"period_ms" toml:"period_ms"`
	DeadlineMS int    `yaml:"deadline_ms" toml:"deadline_ms"`
	StackWords int    `yaml:"stack_words" toml:"stack_words"`
	CostUS     int    `yaml:"cost_us,omitempty" toml:"cost_us"` // charged after every job
	BusyUS     int    `yaml:"busy_us,omitempty" toml:"busy_us"` // load generators only
}

// StreamConfig shapes the ordered byte channel and the message sent on it.
type StreamConfig struct {
	Capacity      int    `yaml:"capacity" toml:"capacity"`
	Message       string `yaml:"message" toml:"message"`
	Length        int    `yaml:"length" toml:"length"` // fixed units per message, NUL padded
	SendTimeoutMS int    `yaml:"send_timeout_ms" toml:"send_timeout_ms"`
}

// Config mirrors config.yml.
type Config struct {
	Kernel       sched.Config    `yaml:"kernel" toml:"kernel"`
	RunMS        int             `yaml:"run_ms" toml:"run_ms"` // 0 = until interrupted
	LogLevel     string          `yaml:"log_level" toml:"log_level"`
	LoopPerMS    int             `yaml:"loop_per_ms" toml:"loop_per_ms"` // counted-loop calibration
	RuntimeStats bool            `yaml:"runtime_stats" toml:"runtime_stats"`
	Trace        bool            `yaml:"trace" toml:"trace"`
	LoadReportMS int             `yaml:"load_report_ms" toml:"load_report_ms"`
	Stream       StreamConfig    `yaml:"stream" toml:"stream"`
	Tasks        []TaskConfig    `yaml:"tasks" toml:"tasks"`
	Stimulus     []gpio.Stimulus `yaml:"stimulus" toml:"stimulus"`
}

func defaultTasks() []TaskConfig {
	return []TaskConfig{
		{Name: "B1", PeriodMS: 50, DeadlineMS: 50, StackWords: 100},
		{Name: "B2", PeriodMS: 50, DeadlineMS: 50, StackWords: 100},
		{Name: "Tx", PeriodMS: 100, DeadlineMS: 100, StackWords: 100},
		{Name: "Rx", PeriodMS: 20, DeadlineMS: 20, StackWords: 100},
		{Name: "L1", PeriodMS: 10, DeadlineMS: 10, StackWords: 100, BusyUS: 5000},
		{Name: "L2", PeriodMS: 100, DeadlineMS: 100, StackWords: 100, BusyUS: 12000},
	}
}

// DefaultConfig is the task set of the reference board.
func DefaultConfig() Config {
	return Config{
		Kernel:       sched.DefaultConfig(),
		RunMS:        10000,
		LogLevel:     "info",
		LoopPerMS:    12000,
		LoadReportMS: 1000,
		Stream: StreamConfig{
			Capacity:      15,
			Message:       "\n100 ms",
			Length:        15,
			SendTimeoutMS: 100,
		},
		Tasks: defaultTasks(),
		Stimulus: []gpio.Stimulus{
			{Port: 1, Pin: 0, AtMS: 100, Level: gpio.High, EveryMS: 200, Count: 40},
			{Port: 1, Pin: 1, AtMS: 175, Level: gpio.High, EveryMS: 350, Count: 24},
		},
	}
}

// Load reads YAML (or TOML, by extension) and overrides defaults; empty
// path or a missing file = defaults only.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	cfg.Tasks = nil
	cfg.Stimulus = nil
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if cfg.Stimulus == nil {
		cfg.Stimulus = DefaultConfig().Stimulus
	}
	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// sanity clamps
func (c *Config) sanitize() {
	c.Kernel.Sanitize()
	if c.LoopPerMS <= 0 {
		c.LoopPerMS = 12000
	}
	if c.Stream.Capacity <= 0 {
		c.Stream.Capacity = 15
	}
	if c.Stream.Length <= 0 {
		c.Stream.Length = len(c.Stream.Message)
	}
	if c.Stream.SendTimeoutMS < 0 {
		c.Stream.SendTimeoutMS = 0
	}

	// tasks left out of the file keep their default timing
	have := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		have[t.Name] = true
	}
	for _, t := range defaultTasks() {
		if !have[t.Name] {
			c.Tasks = append(c.Tasks, t)
		}
	}
	for i := range c.Tasks {
		if c.Tasks[i].DeadlineMS <= 0 {
			c.Tasks[i].DeadlineMS = c.Tasks[i].PeriodMS
		}
	}
}

// Validate reports the first setting the task set cannot run with.
func (c Config) Validate() error {
	for _, name := range taskNames {
		t, ok := c.Task(name)
		if !ok {
			return errors.Errorf("task %s: missing from table", name)
		}
		if t.PeriodMS <= 0 {
			return errors.Errorf("task %s: period_ms must be positive", name)
		}
		if t.DeadlineMS > t.PeriodMS {
			return errors.Errorf("task %s: deadline_ms %d exceeds period_ms %d", name, t.DeadlineMS, t.PeriodMS)
		}
		if t.CostUS < 0 || t.BusyUS < 0 {
			return errors.Errorf("task %s: negative execution time", name)
		}
	}
	seen := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		if _, known := taskIDs[t.Name]; !known {
			return errors.Errorf("task %s: not part of this node", t.Name)
		}
		if seen[t.Name] {
			return errors.Errorf("task %s: listed more than once", t.Name)
		}
		seen[t.Name] = true
	}
	if len(c.Stream.Message) > c.Stream.Length {
		return errors.Errorf("stream: message of %d units does not fit length %d", len(c.Stream.Message), c.Stream.Length)
	}
	return nil
}

// Task looks up a task's timing by name.
func (c Config) Task(name string) (TaskConfig, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return TaskConfig{}, false
}

// Ticks converts milliseconds to kernel ticks.
func (c Config) Ticks(ms int) sched.Tick { return c.Kernel.MillisToTicks(ms) }

// Cycles converts microseconds to reference-clock units.
func (c Config) Cycles(us int) sched.Cycles {
	return c.Kernel.DurationToCycles(time.Duration(us) * time.Microsecond)
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(c)
	return b, errors.Wrap(err, "marshal config")
}

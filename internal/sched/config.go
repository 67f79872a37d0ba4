package sched

import "time"

// Config holds the kernel clock parameters.
type Config struct {
	TickHz    int    `yaml:"tick_hz" toml:"tick_hz"`       // 1000 (by default)
	CounterHz int    `yaml:"counter_hz" toml:"counter_hz"` // reference clock, 1000000 (by default)
	Realtime  bool   `yaml:"realtime" toml:"realtime"`     // pace ticks against the wall clock
	CSVPath   string `yaml:"csv" toml:"csv"`               // event log, empty = off
}

// DefaultConfig is used when no configuration file is given.
func DefaultConfig() Config {
	return Config{
		TickHz:    1000,
		CounterHz: 1000000,
	}
}

// Sanitize clamps nonsensical values back to the defaults and rounds
// CounterHz down to a multiple of TickHz.
func (c *Config) Sanitize() {
	def := DefaultConfig()
	if c.TickHz <= 0 {
		c.TickHz = def.TickHz
	}
	if c.CounterHz < c.TickHz {
		c.CounterHz = c.TickHz
	}
	// a tick must be a whole number of cycles, otherwise tick and cycle
	// conversions of the same duration drift apart
	c.CounterHz -= c.CounterHz % c.TickHz
}

// CyclesPerTick is the number of reference-clock units in one tick.
func (c Config) CyclesPerTick() Cycles {
	return Cycles(c.CounterHz / c.TickHz)
}

// TickInterval is the wall-clock length of one tick.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickHz)
}

// MillisToTicks converts a millisecond figure into ticks, rounding up so
// that a non-zero duration never becomes zero ticks.
func (c Config) MillisToTicks(ms int) Tick {
	if ms <= 0 {
		return 0
	}
	return Tick((ms*c.TickHz + 999) / 1000)
}

// DurationToCycles converts a duration into reference-clock units.
func (c Config) DurationToCycles(d time.Duration) Cycles {
	if d <= 0 {
		return 0
	}
	return Cycles(d.Nanoseconds() * int64(c.CounterHz) / int64(time.Second))
}

// CyclesToDuration converts reference-clock units into a duration.
func (c Config) CyclesToDuration(n Cycles) time.Duration {
	return time.Duration(uint64(n) * uint64(time.Second) / uint64(c.CounterHz))
}

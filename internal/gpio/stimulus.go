package gpio

import "rtnode/internal/sched"

// Stimulus is one scripted input change. With EveryMS and Count set it
// becomes a square wave: Count further changes, EveryMS apart, each one
// inverting the previous level.
type Stimulus struct {
	Port    Port  `yaml:"port" toml:"port"`
	Pin     Pin   `yaml:"pin" toml:"pin"`
	AtMS    int   `yaml:"at_ms" toml:"at_ms"`
	Level   Level `yaml:"level" toml:"level"`
	EveryMS int   `yaml:"every_ms,omitempty" toml:"every_ms"`
	Count   int   `yaml:"count,omitempty" toml:"count"`
}

// Script loads a list of stimuli into the bank, converting milliseconds to
// ticks with toTicks.
func (b *SimBank) Script(stimuli []Stimulus, toTicks func(ms int) sched.Tick) {
	for _, s := range stimuli {
		level := s.Level
		b.Schedule(s.Port, s.Pin, toTicks(s.AtMS), level)
		if s.EveryMS <= 0 {
			continue
		}
		for i := 1; i <= s.Count; i++ {
			level ^= 1
			b.Schedule(s.Port, s.Pin, toTicks(s.AtMS+i*s.EveryMS), level)
		}
	}
}

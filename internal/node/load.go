package node

import (
	"rtnode/internal/job"
	"rtnode/internal/sched"
)

// LoadGenerator burns a fixed amount of processor time per release.
type LoadGenerator struct {
	work     job.Workload
	releases uint64
}

// NewLoadGenerator runs work once per release.
func NewLoadGenerator(work job.Workload) *LoadGenerator {
	return &LoadGenerator{work: work}
}

// Release runs one job.
func (l *LoadGenerator) Release(p *sched.Proc) {
	l.work(p)
	l.releases++
}

// Releases returns the number of completed jobs.
func (l *LoadGenerator) Releases() uint64 { return l.releases }

package exectime

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Stats renders the accumulators as a run-time stats table: one line per
// task with its absolute busy time in reference-clock units and its share
// of elapsed time. Tasks that never ran show "<1%".
func (m *Monitor) Stats() string {
	return m.Snapshot().Table()
}

// Table renders the snapshot the same way Stats does.
func (s Snapshot) Table() string {
	var b strings.Builder
	for _, t := range s.Tasks {
		pct := fmt.Sprintf("%d%%", int(t.Percent))
		if t.Percent < 1 {
			pct = "<1%"
		}
		fmt.Fprintf(&b, "%-8s%14s%8s\r\n", t.Name, humanize.Comma(int64(t.Busy)), pct)
	}
	fmt.Fprintf(&b, "%-8s%14s%7.2f%%\r\n", "CPU", humanize.Comma(int64(s.Busy)), s.CPULoad)
	return b.String()
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"rtnode/internal/node"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	faint = color.New(color.FgHiBlack).SprintFunc()
)

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
	os.Exit(1)
}

func printSummary(w io.Writer, s node.Summary) {
	fmt.Fprintf(w, "\n%s after %s (%s ticks)\n", bold("summary"), s.Elapsed, humanize.Comma(int64(s.Ticks)))
	fmt.Fprintf(w, "%-6s %8s %8s %14s %8s\n", "task", "jobs", "misses", "busy", "share")
	for _, t := range s.Tasks {
		misses := fmt.Sprintf("%8d", t.Misses)
		if t.Misses > 0 {
			misses = red(misses)
		}
		fmt.Fprintf(w, "%-6s %8s %s %14s %7.2f%%\n",
			t.Name, humanize.Comma(int64(t.Jobs)), misses, humanize.Comma(int64(t.Busy)), t.Percent)
	}
	fmt.Fprintf(w, "%-6s %8s %8s %14s %7.2f%%\n", "CPU", "", "", "", s.CPULoad)
	fmt.Fprintf(w, "%-6s %8s %8s %14s\n", "idle", "", "", humanize.Comma(int64(s.Idle)))

	st := s.Stream
	fmt.Fprintf(w, "%s sent %s, received %s, resets %s, tx timeouts %s, messages %s\n",
		faint("stream"),
		humanize.Comma(int64(st.Sent)), humanize.Comma(int64(st.Received)),
		humanize.Comma(int64(st.Resets)), humanize.Comma(int64(s.TxDropped)),
		humanize.Comma(int64(s.Messages)))
	fmt.Fprintf(w, "%s B1 overwritten %d, B2 overwritten %d\n", faint("edges"), s.Overwritten[0], s.Overwritten[1])
	if s.OutErrors > 0 {
		fmt.Fprintf(w, "%s %d serial writes dropped\n", red("serial"), s.OutErrors)
	}

	if m := s.Misses(); m > 0 {
		fmt.Fprintf(w, "%s %d deadline misses\n", red("FAIL"), m)
	} else {
		fmt.Fprintf(w, "%s no deadline misses\n", green("OK"))
	}
}

func printAnalysis(w io.Writer, cfg node.Config) {
	a := cfg.Analyze()
	fmt.Fprintf(w, "%-6s %8s %10s %10s %8s\n", "task", "period", "deadline", "exec", "C/T")
	for _, t := range a.Tasks {
		fmt.Fprintf(w, "%-6s %8s %10s %10s %8.3f\n",
			t.Name, t.Period, t.Deadline, t.Exec, float64(t.Exec)/float64(t.Period))
	}
	fmt.Fprintf(w, "utilization %.3f, density %.3f: ", a.Utilization, a.Density)
	if a.Schedulable() {
		fmt.Fprintln(w, green("schedulable under EDF"))
	} else if a.Utilization <= 1 {
		fmt.Fprintln(w, bold("density bound exceeded, not proven schedulable"))
	} else {
		fmt.Fprintln(w, red("overloaded"))
	}
}

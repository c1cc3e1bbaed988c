// pts-report analyzes a timestamp log emitted by the video-hub timing tap:
// it derives inter-frame spacing, drift vs the monotonic clock, and
// inferred frame loss, and prints summary statistics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/e7canasta/video-hub/internal/timing"
)

func main() {
	asJSON := flag.Bool("json", false, "emit the report as JSON instead of text")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <logfile>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	series, err := timing.ParseLogFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pts-report: %v\n", err)
		os.Exit(1)
	}

	analysis, err := timing.Analyze(series)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pts-report: %v\n", err)
		os.Exit(1)
	}

	report := timing.Summarize(analysis)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "pts-report: %v\n", err)
			os.Exit(1)
		}
		return
	}
	report.Render(os.Stdout)
}

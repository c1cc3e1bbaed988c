package timing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
)

// ErrNoRecords is returned when an input contains no parseable timestamp
// records at all. An empty result is a reportable condition, not a silent
// empty series.
var ErrNoRecords = errors.New("no timestamp records found")

// recordPattern matches the tap's emitted log line. The two floats appear
// in PTS-then-drift order; any decoration before "PTS:" or between the
// fields (log prefixes, emoji) is tolerated, everything else about the
// format is exact since it is parsed, not structured.
var recordPattern = regexp.MustCompile(
	`PTS: (-?\d+(?:\.\d+)?) ms \|.*?Δ vs monotonic: (-?\d+(?:\.\d+)?) ms`)

// ParseLog scans r line by line and extracts every timestamp record, in
// order. Lines that do not match are ignored. Returns ErrNoRecords if the
// whole input yields nothing.
func ParseLog(r io.Reader) (Series, error) {
	var series Series

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := recordPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		pts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		drift, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		series = append(series, Record{PTS: pts, Drift: drift})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("timing: reading log: %w", err)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("timing: %w", ErrNoRecords)
	}
	return series, nil
}

// ParseLogFile opens path and parses it with ParseLog.
func ParseLogFile(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("timing: opening log: %w", err)
	}
	defer f.Close()
	return ParseLog(f)
}

package sim

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"time"

	"vanet-sim/internal/telemetry"
)

const maxLogLine = 1 << 20

// ReplayLog replays sample rows from r to writer. Rows are paced by their
// simulated second divided by speed; speed <= 0 replays without delay.
func ReplayLog(r io.Reader, writer SampleWriter, speed float64) error {
	prev := math.NaN()
	return scanLines(r, func(b []byte) error {
		var row telemetry.SampleRow
		if err := json.Unmarshal(b, &row); err != nil {
			return err
		}
		if speed > 0 && !math.IsNaN(prev) {
			if d := row.SimulationSecond - prev; d > 0 {
				time.Sleep(time.Duration(d / speed * float64(time.Second)))
			}
		}
		prev = row.SimulationSecond
		return writer.WriteSample(row)
	})
}

// ReplaySummaries replays summary rows from r without delay.
func ReplaySummaries(r io.Reader, writer SummaryWriter) error {
	return scanLines(r, func(b []byte) error {
		var row telemetry.SummaryRow
		if err := json.Unmarshal(b, &row); err != nil {
			return err
		}
		return writer.WriteSummary(row)
	})
}

func scanLines(r io.Reader, fn func([]byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if err := fn(b); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

// ReplayLogFile replays the sample log at path. When writer also takes
// summaries and path.summary exists, as FileWriter leaves it, the summary
// rows follow the samples.
func ReplayLogFile(path string, writer SampleWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ReplayLog(f, writer, speed); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	sw, ok := writer.(SummaryWriter)
	if !ok {
		return nil
	}
	sf, err := os.Open(path + ".summary")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer sf.Close()
	if err := ReplaySummaries(sf, sw); err != nil {
		return fmt.Errorf("%s.summary: %w", path, err)
	}
	return nil
}

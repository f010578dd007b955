package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"vanet-sim/internal/observability"
	"vanet-sim/internal/scenario"
	"vanet-sim/internal/sim"
)

const (
	stdoutJSON  = "json"
	stdoutColor = "color"
	stdoutTUI   = "tui"
	stdoutNone  = "none"
)

// resolveStdout picks the console mode. Empty means tui on a terminal and
// json otherwise.
func resolveStdout(mode string) string {
	if mode != "" {
		return mode
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return stdoutTUI
	}
	return stdoutJSON
}

type writerOptions struct {
	dir    string
	jsonl  string
	stdout string
}

// outputs is the writer fan-out of one command plus what must be closed.
type outputs struct {
	writer  *sim.MultiWriter
	metrics *observability.RunCollector
	closers []io.Closer
}

// Close closes every writer in reverse order of creation.
func (o *outputs) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newWriters sets up the writers based on options and env vars. The CSV
// logs are written only when params is set.
func newWriters(params *scenario.Parameters, opts writerOptions) (*outputs, error) {
	out := &outputs{writer: sim.NewMultiWriter(nil, nil)}
	fail := func(err error) (*outputs, error) {
		out.Close()
		return nil, err
	}

	if params != nil {
		dir := opts.dir
		if dir == "" {
			dir = "."
		}
		csv, err := sim.NewCSVWriter(filepath.Join(dir, params.CSVFile), filepath.Join(dir, params.CSVFile2))
		if err != nil {
			return fail(err)
		}
		out.writer.Add(csv)
		out.closers = append(out.closers, csv)
	}

	if opts.jsonl != "" {
		fw, err := sim.NewFileWriter(opts.jsonl, opts.jsonl+".summary")
		if err != nil {
			return fail(err)
		}
		out.writer.Add(fw)
		out.closers = append(out.closers, fw)
	}

	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		db := os.Getenv("GREPTIMEDB_DATABASE")
		if db == "" {
			db = "public"
		}
		gw, err := sim.NewGreptimeDBWriter(endpoint, db)
		if err != nil {
			return fail(fmt.Errorf("greptimedb writer: %w", err))
		}
		log.Printf("[Main] Writing samples to GreptimeDB at %s", endpoint)
		out.writer.Add(gw)
	}

	if addr := os.Getenv("CLICKHOUSE_ADDR"); addr != "" {
		cw, err := sim.NewClickHouseWriter(sim.ClickHouseConfig{
			Addr:     addr,
			Database: os.Getenv("CLICKHOUSE_DATABASE"),
			Username: os.Getenv("CLICKHOUSE_USERNAME"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		})
		if err != nil {
			return fail(fmt.Errorf("clickhouse writer: %w", err))
		}
		out.writer.Add(cw)
		out.closers = append(out.closers, cw)
	}

	if url := os.Getenv("NATS_URL"); url != "" {
		subject := os.Getenv("NATS_SUBJECT")
		if subject == "" {
			subject = sim.DefaultSubject
		}
		nw, err := sim.NewNATSWriter(url, subject)
		if err != nil {
			return fail(fmt.Errorf("nats writer: %w", err))
		}
		log.Printf("[Main] Publishing samples on %s.samples", subject)
		out.writer.Add(nw)
		out.closers = append(out.closers, nw)
	}

	metrics, err := observability.NewRunCollector(prometheus.NewRegistry())
	if err != nil {
		return fail(err)
	}
	out.metrics = metrics
	out.writer.Add(metrics)

	switch opts.stdout {
	case stdoutJSON:
		out.writer.Add(sim.NewJSONStdoutWriter())
	case stdoutColor:
		out.writer.Add(sim.NewColorStdoutWriter(params))
	case stdoutTUI:
		tw := sim.NewTUIWriter(params)
		out.writer.Add(tw)
		out.closers = append(out.closers, tw)
	case stdoutNone, "":
	default:
		return fail(fmt.Errorf("unknown stdout mode %q", opts.stdout))
	}
	return out, nil
}

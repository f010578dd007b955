package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vanet-sim/internal/sim"
)

var (
	replayInput  string
	replaySpeed  float64
	replayStdout string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a sample log file",
	Long:  "replay feeds sample rows from a JSON lines log back into the configured writers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		out, err := newWriters(nil, writerOptions{stdout: replayStdout})
		if err != nil {
			return err
		}
		defer out.Close()
		return sim.ReplayLogFile(replayInput, out.writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to sample log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().StringVar(&replayStdout, "stdout", stdoutJSON, "Console output: json, color or none")
	replayCmd.MarkFlagRequired("input")
}

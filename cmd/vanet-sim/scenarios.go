package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"vanet-sim/internal/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios [id]",
	Short: "List built-in scenarios or show one resolved",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listScenarios(cmd.OutOrStdout())
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("scenario id: %w", err)
		}
		return showScenario(cmd.OutOrStdout(), id)
	},
}

func listScenarios(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNODES\tTIME\tDESCRIPTION")
	for _, id := range scenario.IDs() {
		sc := scenario.BuiltIn()[id]
		p, err := scenario.Resolve(id, scenario.Overrides{})
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%g\t%s\n", id, sc.Name, p.Nodes, p.TotalTime, sc.Description)
	}
	return tw.Flush()
}

func showScenario(w io.Writer, id int) error {
	p, err := scenario.Resolve(id, scenario.Overrides{})
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/workentry-engine/api"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "List, load or export demo scenarios",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List demo scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWINDOW\tCONTRACTS\tDESCRIPTION")
		for _, s := range api.Scenarios() {
			fmt.Fprintf(w, "%s\t%s..%s\t%s\t%s\n", s.ID, s.DateStart, s.DateStop, strings.Join(s.Contracts, ","), s.Description)
		}
		return w.Flush()
	},
}

var scenarioLoadCmd = &cobra.Command{
	Use:   "load <id>",
	Short: "Reset the database and load a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := api.LoadScenario(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		logger.WithField("scenario", s.ID).Info("Scenario loaded")
		fmt.Printf("workentry generate --contract %s --from %s --to %s\n", strings.Join(s.Contracts, ","), s.DateStart, s.DateStop)
		return nil
	},
}

var scenarioShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a scenario as a YAML dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := api.ScenarioDocument(args[0])
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode scenario: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioLoadCmd)
	scenarioCmd.AddCommand(scenarioShowCmd)
}

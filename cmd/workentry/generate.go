package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/workentry-engine/api"
	"github.com/warp/workentry-engine/factory"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
)

var (
	genContracts []string
	genFrom      string
	genTo        string
	genPersist   bool
	genJSON      bool
	genDataset   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate work entries for a date window",
	Long: `Generates the work entries of contracts over [--from, --to].

By default contracts come from the database; without --contract every
contract running in the window is generated. --persist replaces the stored
rows of the generated contracts.

With --dataset the inputs come from a JSON or YAML dataset file instead,
and nothing is stored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := generic.ParseDate(genFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := generic.ParseDate(genTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var res *workentry.Result
		if genDataset != "" {
			res, err = generateDataset(ctx, from, to)
		} else {
			res, err = generateStored(ctx, from, to)
		}
		if err != nil {
			return err
		}

		for _, ce := range res.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", ce.ContractID, ce.Reason)
		}
		if res.Canceled {
			fmt.Fprintln(cmd.ErrOrStderr(), "generation canceled, output is partial")
		}
		if genJSON {
			return printJSON(cmd.OutOrStdout(), res.Entries)
		}
		return printTable(cmd.OutOrStdout(), res.Entries)
	},
}

func init() {
	generateCmd.Flags().StringSliceVar(&genContracts, "contract", nil, "Contract id (repeatable, comma separated)")
	generateCmd.Flags().StringVar(&genFrom, "from", "", "First day, YYYY-MM-DD")
	generateCmd.Flags().StringVar(&genTo, "to", "", "Last day, YYYY-MM-DD")
	generateCmd.Flags().BoolVar(&genPersist, "persist", false, "Store the generated rows")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print JSON instead of a table")
	generateCmd.Flags().StringVar(&genDataset, "dataset", "", "Read inputs from a JSON or YAML dataset file")
	_ = generateCmd.MarkFlagRequired("from")
	_ = generateCmd.MarkFlagRequired("to")
}

func generateStored(ctx context.Context, from, to generic.Date) (*workentry.Result, error) {
	gen := api.NewGenerator(store, logger, cfg.Engine.Options()...)

	ids := make([]workentry.ContractID, len(genContracts))
	for i, id := range genContracts {
		ids[i] = workentry.ContractID(id)
	}
	contracts, err := gen.Contracts(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("no contract running between %s and %s", from, to)
	}

	run, res, err := gen.Run(ctx, "cli", contracts, from, to, genPersist)
	if err != nil {
		return nil, err
	}
	logger.WithField("run_id", run.ID).Debug("Run recorded")
	return res, nil
}

func generateDataset(ctx context.Context, from, to generic.Date) (*workentry.Result, error) {
	if genPersist {
		return nil, fmt.Errorf("--persist cannot be used with --dataset")
	}
	data, err := os.ReadFile(genDataset)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var ds *factory.Dataset
	switch strings.ToLower(filepath.Ext(genDataset)) {
	case ".yaml", ".yml":
		ds, err = factory.New().ParseDatasetYAML(data)
	default:
		ds, err = factory.New().ParseDataset(string(data))
	}
	if err != nil {
		return nil, err
	}

	host, err := ds.MemoryHost()
	if err != nil {
		return nil, err
	}
	engine := cfg.Engine
	if len(engine.BypassCodes) > 0 {
		host.SetBypassCodes(engine.BypassCodes...)
	}
	if len(engine.SourceFields) > 0 {
		host.SetSourceFields(engine.SourceFields...)
	}
	if engine.DefaultAttendanceType != "" && engine.DefaultLeaveType != "" {
		host.SetDefaults(workentry.WorkEntryTypeID(engine.DefaultAttendanceType), workentry.WorkEntryTypeID(engine.DefaultLeaveType))
	}

	contracts := ds.Contracts
	if len(genContracts) > 0 {
		contracts = make([]workentry.Contract, 0, len(genContracts))
		for _, id := range genContracts {
			c, ok := ds.Contract(workentry.ContractID(id))
			if !ok {
				return nil, fmt.Errorf("contract %s: %w", id, api.ErrUnknownContract)
			}
			contracts = append(contracts, c)
		}
	}

	logger.WithFields(logrus.Fields{
		"dataset":   genDataset,
		"contracts": len(contracts),
	}).Info("Generating from dataset")
	return workentry.New(host, cfg.Engine.Options()...).Generate(ctx, contracts, from, to)
}

func printJSON(out io.Writer, entries []workentry.WorkEntry) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(api.WorkEntryDTOs(entries))
}

func printTable(out io.Writer, entries []workentry.WorkEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTRACT\tDATE\tTYPE\tHOURS\tSOURCES")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ContractID, e.Date, e.WorkEntryTypeID, e.Duration, formatSources(e.Sources))
	}
	return w.Flush()
}

func formatSources(sources map[string][]string) string {
	if len(sources) == 0 {
		return "-"
	}
	fields := make([]string, 0, len(sources))
	for f := range sources {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + "=" + strings.Join(sources[f], ",")
	}
	return strings.Join(parts, " ")
}

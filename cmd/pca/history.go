package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/history"
)

var (
	historyLimit   int
	historyCommand string
	historyPrune   bool
)

var historyCmd = &cobra.Command{
	Use:   "history [ASSESSMENT_ID]",
	Short: "Show the local journal of pca runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show (0 for all)")
	historyCmd.Flags().StringVar(&historyCommand, "command", "", "only show runs of this command")
	historyCmd.Flags().BoolVar(&historyPrune, "prune", false, "remove the entries of ASSESSMENT_ID")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if env.cfg.History.Disabled {
		return fmt.Errorf("history is disabled in the config file")
	}

	store, err := history.Open(env.cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := history.ListFilter{Command: historyCommand, Limit: historyLimit}
	if len(args) == 1 {
		filter.AssessmentID = args[0]
	}

	if historyPrune {
		if filter.AssessmentID == "" {
			return fmt.Errorf("--prune needs an ASSESSMENT_ID")
		}
		n, err := store.Prune(cmd.Context(), filter.AssessmentID)
		if err != nil {
			return err
		}
		success.Printf("Removed %d entries of %s\n", n, filter.AssessmentID)
		return nil
	}

	entries, err := store.List(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tCOMMAND\tASSESSMENT\tRESULT\tDURATION\tDETAILS")
	for _, e := range entries {
		details := counts(e.Counts)
		if e.Error != "" {
			details = e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			e.Command,
			e.AssessmentID,
			e.Result,
			e.Duration.Round(time.Millisecond),
			details,
		)
	}
	return w.Flush()
}

func counts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}

package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/audit"
	"github.com/ziadkadry99/gemchat/internal/db"
)

var (
	costSince string
	costPrune time.Duration
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Summarise model usage and estimated cost from the exchange log",
	Long:  `Reads the exchange log written by "gemchat server" and prints request counts, token usage and the estimated API cost.`,
	RunE:  runCost,
}

func init() {
	costCmd.Flags().StringVar(&costSince, "since", "", "only count exchanges after this RFC 3339 time")
	costCmd.Flags().DurationVar(&costPrune, "prune", 0, "delete exchanges older than this age (e.g. 720h) before summarising")
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	store := audit.NewStore(database)

	out := cmd.OutOrStdout()

	if costPrune > 0 {
		n, err := store.DeleteBefore(ctx, time.Now().Add(-costPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %d exchanges older than %s\n\n", n, costPrune)
	}

	var filter audit.QueryFilter
	if costSince != "" {
		t, err := time.Parse(time.RFC3339, costSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = &t
	}

	sum, err := store.Summarize(ctx, filter)
	if err != nil {
		return fmt.Errorf("summarising exchanges: %w", err)
	}

	if sum.Total == 0 {
		fmt.Fprintln(out, "No exchanges recorded yet.")
		return nil
	}

	fmt.Fprintln(out, "Usage Summary")
	fmt.Fprintln(out, "=============")
	fmt.Fprintf(out, "  Exchanges:      %d\n", sum.Total)
	fmt.Fprintf(out, "  Input tokens:   %d\n", sum.InputTokens)
	fmt.Fprintf(out, "  Output tokens:  %d\n", sum.OutputTokens)
	fmt.Fprintf(out, "  Estimated cost: $%.4f\n", sum.CostUSD)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  By endpoint:")
	for _, kind := range []audit.Kind{audit.KindChat, audit.KindUpload} {
		fmt.Fprintf(out, "    %-10s %d\n", kind, sum.ByKind[kind])
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  By status:")
	statuses := make([]string, 0, len(sum.ByStatus))
	for s := range sum.ByStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(out, "    %-10s %d\n", s, sum.ByStatus[audit.Status(s)])
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(out, "  Model:    %s\n", cfg.LLM.Model)

	return nil
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crew/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent dispatch outcomes and month-to-date spend",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of records to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := state.Open(filepath.Join(cfg.Paths.DataDir, "crew.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	mtd, err := db.MonthToDate()
	if err != nil {
		return err
	}
	fmt.Printf("%s $%.4f of $%.2f\n\n", bold("month-to-date spend"), mtd, cfg.Budget.MonthlyUSD)

	recs, err := db.RecentDispatches(historyLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no dispatches recorded")
		return nil
	}

	for _, rec := range recs {
		label := green(rec.Status)
		if rec.Status != "completed" {
			label = red(rec.Status)
		}
		fmt.Printf("%s  %s  %s", rec.CompletedAt.Local().Format("2006-01-02 15:04"), label, cyan(rec.TaskID))
		if rec.Reason != "" {
			fmt.Printf("  %s", rec.Reason)
		}
		fmt.Println()
	}
	return nil
}

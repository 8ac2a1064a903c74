package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsfolk/manifest-dns-sync/internal/config"
	"github.com/opsfolk/manifest-dns-sync/internal/history"
	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent sync outcome per zone",
	Run: func(cmd *cobra.Command, args []string) {
		runHistory()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory() {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := history.Open(cfg.StatePath, metrics.New(false))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	entries, err := store.List(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No sync history recorded.")
		return
	}

	for _, entry := range entries {
		r := entry.Report
		status := "ok"
		if r.Failed {
			status = "failed"
		}
		fmt.Printf("%s (%s): created=%d updated=%d deleted=%d [%s] at %s\n",
			r.ZoneLabel, r.ZoneID, r.Created, r.Updated, r.Deleted, status,
			time.Unix(entry.SyncedAt, 0).Format(time.RFC3339))
	}
}

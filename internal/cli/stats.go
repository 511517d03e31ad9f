// stats.go implements "cardtool db-stats" for a quick look at the session store.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"metacards/internal/app"
	"metacards/internal/config"
	"metacards/internal/storage"
)

var dbStatsCmd = &cobra.Command{
	Use:   "db-stats",
	Short: "Print user and draw counts and the latest draws",
	Long: `Print user and draw counts and the latest draws from the store selected
by STORAGE_DRIVER and its connection settings. A .env file is loaded if present.`,
	Args: cobra.NoArgs,
	RunE: runDBStats,
}

var lastDraws int

func init() {
	dbStatsCmd.Flags().IntVar(&lastDraws, "last", 3, "Number of recent draws to show")
}

func runDBStats(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.StorageFromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := app.NewLogger("warn", cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	db, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return printStats(ctx, cmd.OutOrStdout(), db, lastDraws)
}

func printStats(ctx context.Context, out io.Writer, db storage.Storage, last int) error {
	stats, err := db.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	fmt.Fprintf(out, "Users: %d\nDraws: %d\n", stats.Users, stats.Draws)

	if last <= 0 || stats.Draws == 0 {
		return nil
	}
	draws, err := db.GetLastDraws(ctx, last)
	if err != nil {
		return fmt.Errorf("reading draws: %w", err)
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tBLOCK\tRESOURCE\tREQUESTED\tREQUEST")
	for _, d := range draws {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\n",
			d.ID, d.UserID, d.BlockCardID, d.ResourceCardID,
			d.RequestedAt.Format("2006-01-02 15:04"), shorten(d.RequestText, 40))
	}
	return w.Flush()
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

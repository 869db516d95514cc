package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/explorer/internal/infra/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the high-water mark of every event stream",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx := context.Background()

	app := openApp(ctx, cfg)
	defer app.Close()

	heads, err := app.Service().Heads(ctx)
	if err != nil {
		slog.Error("Failed to read stream heads", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STREAM\tHEAD")
	for _, stream := range storage.Streams {
		head, ok := heads[stream]
		if !ok {
			_, _ = fmt.Fprintf(w, "%s\t-\n", stream)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", stream, head)
	}
	_ = w.Flush()
}

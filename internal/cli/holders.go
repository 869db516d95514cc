package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	holdersPage  int
	holdersLimit int
)

var holdersCmd = &cobra.Command{
	Use:   "holders [token_address]",
	Short: "List the holders of a fungible token, largest balance first",
	Args:  cobra.ExactArgs(1),
	Run:   runHolders,
}

func init() {
	holdersCmd.Flags().IntVar(&holdersPage, "page", 1, "page number")
	holdersCmd.Flags().IntVar(&holdersLimit, "limit", 20, "holders per page")
	rootCmd.AddCommand(holdersCmd)
}

func runHolders(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx := context.Background()

	app := openApp(ctx, cfg)
	defer app.Close()

	env, err := app.Service().TokenHolders(ctx, args[0], holdersPage, holdersLimit)
	if err != nil {
		slog.Error("Failed to compute holders", "token", args[0], "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "HOLDER\tBALANCE")
	for _, h := range env.Data {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", h.Holder, h.Balance)
	}
	_ = w.Flush()

	fmt.Printf("page %d of %d, %d holders\n", env.Page, env.TotalPages, env.Total)
	for _, warn := range env.Warnings {
		slog.Warn("Integrity warning", "kind", warn.Kind, "detail", warn.Detail)
	}
}

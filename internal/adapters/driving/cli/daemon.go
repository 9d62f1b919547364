package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/parcelsync/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run periodic sync and queue drain in the foreground",
	Long: `Run the scheduler until interrupted. Sources are re-fetched on the
sync interval, queued changes are replayed on the drain interval and
as soon as connectivity returns, and CSV sources are re-read when their
file changes.

With --mcp-port the MCP server is served over HTTP alongside.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().Int("mcp-port", 0, "also serve MCP over HTTP on this port")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	port, _ := cmd.Flags().GetInt("mcp-port")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	if port > 0 {
		server, err := newMCPServer()
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		addr := fmt.Sprintf(":%d", port)
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
		g.Go(func() error {
			return server.RunHTTP(gctx, addr)
		})
	}

	cmd.Println("parcelsync daemon running; press Ctrl+C to stop.")
	logger.Info("daemon started")

	err := g.Wait()
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("scheduler stop: %v", stopErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cmd.Println("Stopped.")
	return nil
}

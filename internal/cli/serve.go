package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board over HTTP",
	Long: `Serve the board as a JSON API with a server-sent event stream at /api/events
and Prometheus metrics at /metrics.

The server holds the operator lock for its lifetime, so CLI commands that
mutate the board fail with "board is in use" until it stops.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, cleanup, err := openBoard(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		zap.S().Infow("serving board", "board", cfg.Board.Name, "port", port, "stages", s.board.Graph().Len())
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://localhost:%d\n", cfg.Board.Name, port)
		return web.NewServer(s.board, s.broker, s.reports, port).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (default server.port)")
}

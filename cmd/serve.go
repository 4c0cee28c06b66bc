package cmd

import (
	"fmt"
	"log/slog"

	"github.com/soundset/datacap/internal/server"
	"github.com/soundset/datacap/internal/service"

	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control server for the graphical shell",
	Long: `Open the audio pipeline and expose it over HTTP for the graphical
shell: device listing, session control, and a WebSocket stream of level
readings and recording lifecycle events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		svc := service.New(cfg)
		if err := svc.Open(); err != nil {
			return fmt.Errorf("failed to open audio pipeline: %w", err)
		}
		defer svc.Close()

		srv := server.New(svc, cfg.Server.Port)
		slog.Info("datacap control server starting", "port", cfg.Server.Port)

		if err := srv.Start(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "port for the control server")
}

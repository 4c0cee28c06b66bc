package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundset/datacap/internal/recorder"
	"github.com/soundset/datacap/internal/service"

	"github.com/spf13/cobra"
)

var testDevice int

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Show a live input level meter",
	Long: `Monitor the selected input device with a live level meter without
recording anything. Useful for checking microphone placement and gain
before recording takes. Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("device") {
			cfg.Audio.DeviceID = testDevice
		}

		svc := service.New(cfg)
		if err := svc.Open(); err != nil {
			return fmt.Errorf("failed to open audio pipeline: %w", err)
		}
		defer svc.Close()

		events, err := svc.Events()
		if err != nil {
			return err
		}
		if err := svc.StartTest(); err != nil {
			return err
		}

		fmt.Println("Monitoring input level - press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-sigChan:
				fmt.Println()
				return svc.StopTest()
			case ev := <-events:
				if ev.Type == recorder.EventLevel {
					printMeter(ev.Level)
				}
				if ev.Type == recorder.EventFailed {
					return fmt.Errorf("test failed: %s", ev.Reason)
				}
			}
		}
	},
}

func init() {
	testCmd.Flags().IntVar(&testDevice, "device", -1, "input device number (see 'datacap devices')")
}

package cmd

import (
	"fmt"

	"github.com/soundset/datacap/internal/service"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	Long: `List all input-capable audio devices. The list is queried fresh on
every invocation so hot-plugged microphones show up immediately.
Use a device's number with 'record --device' or in the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.New(cfg)
		devices, err := svc.Devices()
		if err != nil {
			return fmt.Errorf("failed to query input devices: %w", err)
		}

		if len(devices) == 0 {
			fmt.Println("No input devices found.")
			return nil
		}

		fmt.Printf("🎤 Input devices (%d found):\n", len(devices))
		for _, dev := range devices {
			fmt.Printf("  %d. %s (%d ch, %.0f Hz default)\n",
				dev.ID, dev.Name, dev.MaxInputChannels, dev.DefaultSampleRate)
		}
		return nil
	},
}

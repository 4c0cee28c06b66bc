package cmd

import (
	"fmt"

	"github.com/soundset/datacap/internal/audio"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play back a recorded take",
	Long:  `Play a recorded WAV take through the default output device.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := audio.Init(); err != nil {
			return err
		}
		defer audio.Terminate()

		fmt.Printf("Playing %s\n", args[0])
		if err := audio.PlayFile(args[0]); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		return nil
	},
}

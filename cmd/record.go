package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soundset/datacap/internal/dataset"
	"github.com/soundset/datacap/internal/recorder"
	"github.com/soundset/datacap/internal/service"

	"github.com/spf13/cobra"
)

var (
	recordDuration int
	recordPrefix   string
	recordIndex    int
	recordDevice   int
)

var recordCmd = &cobra.Command{
	Use:   "record <OK|NG>",
	Short: "Record one categorized take",
	Long: `Record a fixed-duration take from the configured input device into
output/<OK|NG>/<prefix>_<index>.wav. Press Ctrl+C to stop early; the
partial take is still written as a valid WAV file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := dataset.Category(strings.ToUpper(args[0]))
		applyRecordFlags(cmd)

		svc := service.New(cfg)
		if err := svc.Open(); err != nil {
			return fmt.Errorf("failed to open audio pipeline: %w", err)
		}
		defer svc.Close()

		events, err := svc.Events()
		if err != nil {
			return err
		}

		params := recorder.Params{
			Category:        category,
			DurationSeconds: cfg.Recording.DurationSeconds,
			Prefix:          cfg.Recording.Prefix,
			StartIndex:      cfg.Recording.StartIndex,
		}
		if err := svc.Record(params); err != nil {
			return err
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-sigChan:
				slog.Info("Stopping recording early...")
				if err := svc.StopRecording(); err != nil {
					return err
				}

			case ev := <-events:
				switch ev.Type {
				case recorder.EventLevel:
					printMeter(ev.Level)
				case recorder.EventProgress:
					fmt.Printf("\r%*s\r", meterWidth+12, "")
					fmt.Printf("%ds / %ds\n", ev.ElapsedSeconds, params.DurationSeconds)
				case recorder.EventCompleted:
					fmt.Printf("\nSaved %s\n", ev.Path)
					return nil
				case recorder.EventFailed:
					return fmt.Errorf("recording failed: %s", ev.Reason)
				}
			}
		}
	},
}

func applyRecordFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("duration") {
		cfg.Recording.DurationSeconds = recordDuration
	}
	if cmd.Flags().Changed("prefix") {
		cfg.Recording.Prefix = recordPrefix
	}
	if cmd.Flags().Changed("index") {
		cfg.Recording.StartIndex = recordIndex
	}
	if cmd.Flags().Changed("device") {
		cfg.Audio.DeviceID = recordDevice
	}
}

func init() {
	recordCmd.Flags().IntVarP(&recordDuration, "duration", "d", 5, "take duration in seconds (1-300)")
	recordCmd.Flags().StringVar(&recordPrefix, "prefix", "sample", "filename prefix")
	recordCmd.Flags().IntVar(&recordIndex, "index", 1, "starting index (existing files always win)")
	recordCmd.Flags().IntVar(&recordDevice, "device", -1, "input device number (see 'datacap devices')")
}

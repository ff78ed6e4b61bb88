package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/liyigang86/drm-rga-demo/display"
)

var (
	probeDisplay displayFlags
	probeDepth   int
)

func init() {
	probeDisplay.register(probeCmd.Flags())
	probeCmd.Flags().IntVar(&probeDepth, `depth`, 32, `frame depth to allocate buffers for`)
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:              `probe`,
	Short:            `print the selected display path`,
	Long:             `print the display path and buffers a run would use, without rendering`,
	Args:             cobra.NoArgs,
	TraverseChildren: true,
	Run: func(cmd *cobra.Command, args []string) {
		run(func(logger *slog.Logger) error {
			opts, err := probeDisplay.options(logger)
			if err != nil {
				return err
			}
			w, h, err := parseSize(probeDisplay.mode)
			if err != nil {
				return err
			}
			dc, err := display.New(1, probeDepth, w, h, opts)
			if err != nil {
				return err
			}
			defer dc.Close()
			fmt.Println(dc.String())
			cfg := dc.Config()
			fmt.Printf("plane role: %s\nrenderer:   %s\nadvance:    %s\n", cfg.PlaneRole, cfg.Renderer, cfg.Advance)
			return nil
		})
	},
}

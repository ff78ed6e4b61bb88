package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/fbpool"
	"github.com/liyigang86/drm-rga-demo/internal/logx"
)

var (
	runDisplay  displayFlags
	runPool     string
	runRefresh  bool
	runBuffers  int
	runFPSEvery int
)

func init() {
	runDisplay.register(runCmd.Flags())
	runCmd.Flags().StringVarP(&runPool, `pool`, `p`, fbpool.DefaultPath, `frame pool file or device`)
	runCmd.Flags().BoolVar(&runRefresh, `refresh`, true, `issue the ACM refresh ioctl before every poll`)
	runCmd.Flags().IntVarP(&runBuffers, `buffers`, `n`, 2, `number of scan-out buffers`)
	runCmd.Flags().IntVar(&runFPSEvery, `fps-every`, 60, `log the frame rate every n frames, 0 disables`)
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   `run`,
	Short: `show frames from a frame pool`,
	Long: `show frames from a frame pool

Frames are taken from the pool whenever its producer publishes a new
buffer index and rendered onto the display until interrupted.`,
	Args:             cobra.NoArgs,
	TraverseChildren: true,
	Run: func(cmd *cobra.Command, args []string) {
		run(func(logger *slog.Logger) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLoop(ctx, logger)
		})
	},
}

func runLoop(ctx context.Context, logger *slog.Logger) error {
	src, err := fbpool.Open(ctx, runPool, fbpool.SetRefresh(runRefresh), fbpool.SetSLogger(logger))
	if err != nil {
		return ignoreCanceled(ctx, err)
	}
	defer src.Close()
	hdr := src.Header()

	opts, err := runDisplay.options(logger)
	if err != nil {
		return err
	}
	dc, err := display.New(runBuffers, int(hdr.Depth), int(hdr.Width), int(hdr.Height), opts)
	if err != nil {
		return err
	}
	defer dc.Close()

	rate := newFPSMeter(runFPSEvery, time.Now)
	for {
		fr, err := src.Next(ctx)
		if err != nil {
			return ignoreCanceled(ctx, err)
		}
		if err := dc.Render(fr.Data, fr.Depth, fr.Width, fr.Height, fr.Pitch); err != nil {
			logx.IsErr(err, dc, slog.LevelWarn, `frame`, fr.Index)
			continue
		}
		if fps, ok := rate.Tick(); ok {
			logx.Info(`render`, dc, `fps`, fps, `presented`, dc.Presented())
		}
	}
}

// ignoreCanceled turns the error of an interrupted wait into a clean exit.
func ignoreCanceled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

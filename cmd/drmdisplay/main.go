package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	_ "github.com/liyigang86/drm-rga-demo/blit/rga"
	_ "github.com/liyigang86/drm-rga-demo/blit/soft"
	"github.com/liyigang86/drm-rga-demo/internal/consts"
	"github.com/liyigang86/drm-rga-demo/internal/environ"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:              filepath.Base(os.Args[0]),
	Short:            "drmdisplay shows raw frames on a DRM/KMS plane",
	Long:             "drmdisplay shows raw frames on a DRM/KMS plane",
	SilenceUsage:     true,
	TraverseChildren: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, `debug`, `d`, false, `debug errors and log at debug level`)
	rootCmd.PersistentFlags().StringVarP(&logFileFlag, `log-file`, `l`, ``, `log file (default stderr)`)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	debugFlag   bool
	logFileFlag string
)

// run executes fn with a logger built from the persistent flags and exits
// non-zero if it fails.
func run(fn func(logger *slog.Logger) error) {
	var exitCode int
	defer func() { os.Exit(exitCode) }()

	logger, closeLog, err := newLogger(logFileFlag, debugFlag)
	switch {
	case err != nil:
	case fn == nil:
		err = errors.NilParam()
	default:
		defer closeLog()
		err = fn(logger)
	}
	if err != nil {
		exitCode = 1
		if stackFramer, ok := err.(interface{ ErrorStack() string }); debugFlag && ok {
			fmt.Fprintln(os.Stderr, "\n"+stackFramer.ErrorStack())
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
	}
}

func newLogger(logFile string, debug bool) (*slog.Logger, func(), error) {
	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)
	if len(logFile) > 0 {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, errors.WrapPrefix(err, `log file`, 0)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	lvl := slog.LevelInfo
	if debug || environ.IsSet(environ.OS(), consts.DebugEnvVar) {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: debug, Level: lvl}))
	return logger, closeFn, nil
}

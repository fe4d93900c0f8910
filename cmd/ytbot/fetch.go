package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/pipeline"
)

func newFetchCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch one video or playlist into a local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			logger := xlog.WithComponent("fetch")
			materializeCookies(s, logger)
			a, err := newApp(s, nil, logger)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = a.close(ctx)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess := pipeline.Session{Sink: pipeline.NewDirSink(outDir), Reporter: pipeline.NewLogReporter()}
			res := a.runner.Handle(ctx, model.NewMediaRequest(args[0], s.Quality), sess)
			printResult(cmd, res)
			if res.Failed() {
				return fmt.Errorf("nothing delivered for %s", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory delivered files are written to.")
	return cmd
}

func printResult(cmd *cobra.Command, res pipeline.Result) {
	out := cmd.OutOrStdout()
	switch {
	case res.Err != nil:
		_, _ = fmt.Fprintf(out, "failed: %v\n", res.Err)
	case res.Summary != nil:
		for _, o := range res.Summary.Outcomes {
			_, _ = fmt.Fprintf(out, "%-9s %s: %s\n", o.Kind, o.Title, o.Message())
		}
		_, _ = fmt.Fprintln(out, res.Summary.Line())
	default:
		_, _ = fmt.Fprintf(out, "%s: %s\n", res.Outcome.Kind, res.Outcome.Message())
	}
}

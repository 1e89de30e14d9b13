package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/teemow/odoocal/internal/server"
)

func newWatchCmd() *cobra.Command {
	out := &outputOptions{}
	var interval string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print event reminders as they become due",
		Long: `Poll the server for due event reminders and print them at their due time.

The server is asked again after every interval. Stop with Ctrl+C; pending
acknowledgements are sent before the session is closed.`,
		Example: `  odoocal watch
  odoocal watch --interval 1m
  odoocal watch --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			if interval != "" {
				d, err := str2duration.ParseDuration(interval)
				if err != nil || d <= 0 {
					return fmt.Errorf("invalid interval %q", interval)
				}
				cfg.NotifyInterval = d
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink := newTerminalSink(cmd.OutOrStdout(), out.JSON)
			sc, err := connect(ctx, cfg, connectConfig{
				Server: func(c *server.Config) { c.Sink = sink },
			})
			if err != nil {
				return err
			}
			defer closeSession(sc)

			if err := sc.Ready(ctx, true); err != nil {
				return err
			}
			if !out.JSON {
				_, _ = color.New(color.Faint).Fprintf(cmd.ErrOrStderr(),
					"watching reminders of %s every %s\n", sc.Session().Name, sc.Poller().Interval().Round(time.Second))
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&interval, "interval", "", "Poll interval, e.g. 30s, 5m or 1h (default 5m). Can also use NOTIFY_INTERVAL env var.")
	addOutputFlag(cmd, out)
	return cmd
}

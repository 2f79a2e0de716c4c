package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/slurmgo/internal/engine"
	"github.com/me/slurmgo/pkg/model"
)

func newWaitCmd() *cobra.Command {
	var interval, timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait <handle>...",
		Short: "Block until jobs are no longer running",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handles := make([]model.JobHandle, 0, len(args))
			for _, arg := range args {
				h, err := model.ParseHandle(arg)
				if err != nil {
					return err
				}
				handles = append(handles, h)
			}

			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return s.engine.Wait(ctx, handles, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", engine.DefaultPollInterval, "Polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	return cmd
}

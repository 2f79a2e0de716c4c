package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/slurmgo/pkg/model"
)

func stateLabel(running bool) string {
	if running {
		return "running"
	}
	return "finished"
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <handle>...",
		Short: "Report whether jobs are still running",
		Long: `Report whether each job is still running. A handle is a scheduler job id
("4242" or "job:4242") or a local process ("pid:1234"). Scheduler jobs count
as running while PENDING, RUNNING, SUSPENDED or CONFIGURING. Jobs found in
the ledger also show their recorded name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handles := make([]model.JobHandle, 0, len(args))
			for _, arg := range args {
				h, err := model.ParseHandle(arg)
				if err != nil {
					return err
				}
				handles = append(handles, h)
			}

			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, h := range handles {
				line := h.String() + "\t" + stateLabel(s.engine.StillRunning(cmd.Context(), h))
				if name := s.recordedName(cmd.Context(), h); name != "" {
					line += "\t" + name
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

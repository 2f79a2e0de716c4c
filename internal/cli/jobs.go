package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	var limit int
	var live bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recorded submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()
			if s.ledger == nil {
				return fmt.Errorf("the submission ledger is disabled")
			}

			subs, err := s.ledger.ListSubmissions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list submissions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(subs) == 0 {
				fmt.Fprintln(out, "No submissions found.")
				return nil
			}

			fmt.Fprintf(out, "%-14s  %-9s  %-20s  %-40s  %s\n", "HANDLE", "STATE", "CREATED", "NAME", "ATTEMPTS")
			for _, sub := range subs {
				state := "-"
				if live {
					state = stateLabel(s.engine.StillRunning(cmd.Context(), sub.Handle))
				}
				attempts := make([]string, len(sub.JobIDs))
				for i, id := range sub.JobIDs {
					attempts[i] = fmt.Sprint(id)
				}
				fmt.Fprintf(out, "%-14s  %-9s  %-20s  %-40s  %s\n",
					sub.Handle, state, sub.CreatedAt.Local().Format(time.DateTime), sub.Name, strings.Join(attempts, ","))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of submissions to show")
	cmd.Flags().BoolVar(&live, "live", false, "Look up whether each job is still running")
	return cmd
}

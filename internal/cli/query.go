package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/slurmgo/pkg/model"
)

func newQueryCmd() *cobra.Command {
	var field, onFailure string

	cmd := &cobra.Command{
		Use:   "query <job_id>",
		Short: "Show the scheduler's record for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return &model.ConfigError{Field: "job id", Message: fmt.Sprintf("%q is not a positive integer", args[0])}
			}
			policy, err := model.ParseFailurePolicy(onFailure)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if field != "" {
				value, ok, err := s.engine.QueryField(cmd.Context(), id, field, policy)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(out, value)
				}
				return nil
			}

			fields, err := s.engine.Query(cmd.Context(), id, policy)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s=%s\n", k, fields[k])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Print only this field (e.g. JobState)")
	cmd.Flags().StringVar(&onFailure, "on-failure", "error", "What a failed query does: error, warn or silent")
	return cmd
}

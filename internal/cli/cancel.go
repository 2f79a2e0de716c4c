package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/slurmgo/pkg/model"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <handle>",
		Short: "Cancel a scheduler job or kill a local process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := model.ParseHandle(args[0])
			if err != nil {
				return err
			}
			if h.IsZero() {
				return &model.ConfigError{Field: "handle", Message: "empty"}
			}

			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.engine.Kill(cmd.Context(), h) {
				return fmt.Errorf("%s: nothing was cancelled", h)
			}
			if name := s.recordedName(cmd.Context(), h); name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) cancelled\n", h, name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s cancelled\n", h)
			return nil
		},
	}
}

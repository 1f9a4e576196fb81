package main

import (
	"github.com/mediayear/backend/internal/terminal"
	"github.com/mediayear/backend/internal/uploadform"
	"github.com/spf13/cobra"
)

func submitCmd(opts *globalOptions) *cobra.Command {
	var rawFields []string

	cmd := &cobra.Command{
		Use:   "submit [--field name=value]... FILE...",
		Short: "Preview the files and upload them",
		Long: `Preview the selected files, then post them as one multi-part form together
with any extra fields. On success the results address is printed; otherwise the
server's message is shown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make([]uploadform.Field, 0, len(rawFields))
			for _, raw := range rawFields {
				f, err := terminal.ParseField(raw)
				if err != nil {
					return err
				}
				fields = append(fields, f)
			}

			files, err := loadFiles(args)
			if err != nil {
				return err
			}
			s, err := newSession(opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), fields, files)
			if err != nil {
				return err
			}

			s.controller.HandleSelectionChange(cmd.Context(), files)
			s.controller.Wait()
			s.grid.Flush()

			return s.controller.HandleSubmit(cmd.Context())
		},
	}

	cmd.Flags().StringArrayVar(&rawFields, "field", nil, "Extra form field as name=value (repeatable)")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"
)

func previewCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE...",
		Short: "Show preview cards for the selected files",
		Long: `Show a preview card for every image and video in the selection.
Files that are neither images nor videos are left out, as the upload form does.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := loadFiles(args)
			if err != nil {
				return err
			}
			s, err := newSession(opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), nil, files)
			if err != nil {
				return err
			}

			s.controller.HandleSelectionChange(cmd.Context(), files)
			s.controller.Wait()
			s.grid.Flush()
			return nil
		},
	}
}

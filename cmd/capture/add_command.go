package main

import (
	"fmt"

	"github.com/sifan077/PowerMark/internal/capture"
	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Fill the web capture form: resolve the URL, merge with the given fields, submit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			form := capture.NewWebCoordinator(capture.WebOptions{
				API:      client,
				Debounce: ctx.debounce(),
				Logger:   ctx.logger(),
			})
			defer form.Close()

			form.SetTitle(title)
			form.SetDescription(description)
			form.SetURL(args[0])
			form.Wait()

			bookmark, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q as %s\n", bookmark.Title, bookmark.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title; the page title is used when empty")
	cmd.Flags().StringVar(&description, "description", "", "Description; the page description is used when empty")
	return cmd
}

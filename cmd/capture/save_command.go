package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sifan077/PowerMark/internal/capture"
	"github.com/spf13/cobra"
)

func newSaveCommand(ctx *commandContext) *cobra.Command {
	var notes string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "save <url>",
		Short: "Resolve a page and save it, like the browser extension does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			tab := capture.TabSourceFunc(func(context.Context) (string, error) {
				return args[0], nil
			})
			coord := capture.NewExtensionCoordinator(client, tab, ctx.logger())

			out := cmd.OutOrStdout()
			if err := coord.Open(cmd.Context()); err != nil {
				if errors.Is(err, capture.ErrLoginRequired) {
					return errors.New("not logged in: pass --token or set POWERMARK_TOKEN")
				}
				return err
			}
			printPreview(out, coord.Preview())

			if dryRun {
				return nil
			}

			coord.SetNotes(notes)
			bookmark, err := coord.Save(cmd.Context())
			if err != nil {
				return fmt.Errorf("save failed: %s", coord.SaveError())
			}
			fmt.Fprintf(out, "Saved bookmark %s\n", bookmark.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Notes saved in place of the page description")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the preview without saving")
	return cmd
}

func printPreview(w io.Writer, p capture.Preview) {
	fmt.Fprintf(w, "Title:       %s\n", p.Title)
	fmt.Fprintf(w, "URL:         %s\n", p.URL)
	fmt.Fprintf(w, "Description: %s\n", p.Description)
	if p.OGImageURL != "" {
		fmt.Fprintf(w, "Image:       %s\n", p.OGImageURL)
	}
	if !p.MediaType.IsDefault() {
		fmt.Fprintf(w, "Media:       %s %s\n", p.MediaType, p.MediaEmbedID)
	}
}

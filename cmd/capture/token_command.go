package main

import (
	"errors"
	"fmt"

	"github.com/sifan077/PowerMark/internal/http/util"
	"github.com/spf13/cobra"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a session token signed with SESSION_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Server.SessionSecret == "" {
				return errors.New("SESSION_SECRET is not set")
			}

			signer := util.NewSessionSigner([]byte(cfg.Server.SessionSecret), cfg.Server.SessionTTL)
			token, err := signer.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

package main

import (
	"strings"
	"sync"
	"time"

	"github.com/sifan077/PowerMark/config"
	"github.com/sifan077/PowerMark/internal/capture/apiclient"
	"github.com/sifan077/PowerMark/internal/infra/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	var apiFlag, tokenFlag string
	ctx := &commandContext{apiFlag: &apiFlag, tokenFlag: &tokenFlag}

	rootCmd := &cobra.Command{
		Use:           "capture",
		Short:         "Capture bookmarks into PowerMark",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := logger.Init(logger.ConfigFromEnv()); err != nil {
				return err
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "PowerMark API base URL (default from POWERMARK_API)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Session token (default from POWERMARK_TOKEN)")

	rootCmd.AddCommand(newSaveCommand(ctx))
	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}

type commandContext struct {
	apiFlag   *string
	tokenFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*apiclient.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	base := cfg.Capture.APIBaseURL
	if v := strings.TrimSpace(*c.apiFlag); v != "" {
		base = v
	}
	token := cfg.Capture.Token
	if v := strings.TrimSpace(*c.tokenFlag); v != "" {
		token = v
	}
	return apiclient.New(base, token, cfg.Capture.Timeout), nil
}

func (c *commandContext) debounce() time.Duration {
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Capture.Debounce
	}
	return 0
}

func (c *commandContext) logger() *zap.Logger {
	return logger.L().Named("capture")
}

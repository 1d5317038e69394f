// Package main provides management commands that run outside the server:
// developer notifications, webhook registration, quote and command checks.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tulul/tululbot/internal/buildinfo"
	"github.com/tulul/tululbot/internal/config"
	"github.com/tulul/tululbot/internal/telegram"
)

// env carries what the subcommands need from the process, replaced in tests.
type env struct {
	out        io.Writer
	loadConfig func() *config.Config
	messenger  func(cfg *config.Config) (telegram.Messenger, error)
}

func defaultEnv() *env {
	return &env{
		out:        os.Stdout,
		loadConfig: config.LoadUnvalidated,
		messenger:  newMessenger,
	}
}

func newMessenger(cfg *config.Config) (telegram.Messenger, error) {
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("%s is not set", config.EnvTelegramBotToken)
	}
	return telegram.NewClient(cfg.TelegramBotToken, telegram.Options{ServerURL: cfg.TelegramAPIURL})
}

func main() {
	if err := newRootCmd(defaultEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "manage",
		Short:        "Manage TululBot outside the server",
		SilenceUsage: true,
	}
	cmd.SetOut(e.out)

	cmd.AddCommand(newNotifyCmd(e))
	cmd.AddCommand(newSetWebhookCmd(e))
	cmd.AddCommand(newDeleteWebhookCmd(e))
	cmd.AddCommand(newWhoamiCmd(e))
	cmd.AddCommand(newQuoteCmd(e))
	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("tululbot " + buildinfo.String())
		},
	}
}

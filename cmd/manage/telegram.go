package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/config"
)

var errNoDevelChat = errors.New(config.EnvDevelChatID + " is not set")

func newNotifyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <message>",
		Short: "Send a notification to the developers chat",
		Long: `Send a message to the chat configured in TULULBOT_DEVEL_CHAT_ID.

Examples:
  manage notify "Deploying v1.10.0"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.loadConfig()
			if cfg.DevelChatID == 0 {
				return errNoDevelChat
			}
			message := strings.TrimSpace(args[0])
			if message == "" {
				return errors.New("message is empty")
			}
			tg, err := e.messenger(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.TelegramRequest)
			defer cancel()
			if err := tg.Send(ctx, cfg.DevelChatID, bot.Reply{Text: message, SuppressPreview: true}); err != nil {
				return fmt.Errorf("notify: %w", err)
			}
			cmd.Println("Notification sent")
			return nil
		},
	}
}

func newSetWebhookCmd(e *env) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Point Telegram at the webhook URL",
		Long: `Register the webhook with Telegram. The URL defaults to WEBHOOK_HOST
followed by the bot token path, the same URL the server registers on startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := e.loadConfig()
			tg, err := e.messenger(cfg)
			if err != nil {
				return err
			}
			target := url
			if target == "" {
				target = cfg.WebhookURL()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.TelegramRequest)
			defer cancel()
			if err := tg.SetWebhook(ctx, target); err != nil {
				return fmt.Errorf("set webhook: %w", err)
			}
			cmd.Println("Webhook set to " + strings.ReplaceAll(target, cfg.TelegramBotToken, "[token]"))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "webhook URL (default WEBHOOK_HOST/[token])")
	return cmd
}

func newDeleteWebhookCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-webhook",
		Short: "Remove the webhook so updates can be polled or the bot paused",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tg, err := e.messenger(e.loadConfig())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.TelegramRequest)
			defer cancel()
			if err := tg.DeleteWebhook(ctx); err != nil {
				return fmt.Errorf("delete webhook: %w", err)
			}
			cmd.Println("Webhook deleted")
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the bot identity behind TELEGRAM_BOT_TOKEN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tg, err := e.messenger(e.loadConfig())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.TelegramRequest)
			defer cancel()
			me, err := tg.Me(ctx)
			if err != nil {
				return fmt.Errorf("getMe: %w", err)
			}
			cmd.Printf("@%s (%s) id=%d\n", me.Username, me.FirstName, me.ID)
			return nil
		},
	}
}

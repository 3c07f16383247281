package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
)

// Webhook command flags.
var (
	webhookFlagType   string
	webhookFlagEvents string
	webhookFlagForce  bool
)

// webhookCmd represents the webhook command.
var webhookCmd = &cobra.Command{
	Use:     "webhook [command]",
	Aliases: []string{"wh", "hook"},
	Short:   "Configure where dose notifications are delivered",
	Long: `Configure webhooks for Discord, Slack, Teams, or any endpoint that accepts
JSON. Notifications are only allowed while at least one webhook is enabled.

Examples:
  medtime webhook add phone https://ntfy.example.com/meds
  medtime webhook add family https://discord.com/api/webhooks/... --events missed
  medtime webhook list
  medtime webhook test phone
  medtime webhook remove family`,
	RunE: runWebhookList,
}

var webhookAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Add a webhook",
	Long: `Add a webhook. The type is detected from the URL unless --type is given:
  discord.com/api/webhooks/...  discord
  hooks.slack.com/services/...  slack
  outlook.office.com/webhook/...  teams
  anything else                 generic`,
	Args: cobra.ExactArgs(2),
	RunE: runWebhookAdd,
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhooks",
	RunE:  runWebhookList,
}

var webhookTestCmd = &cobra.Command{
	Use:               "test NAME",
	Short:             "Send a test notification",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeWebhookArgs,
	RunE:              runWebhookTest,
}

var webhookRemoveCmd = &cobra.Command{
	Use:               "remove NAME",
	Aliases:           []string{"rm", "delete"},
	Short:             "Remove a webhook",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeWebhookArgs,
	RunE:              runWebhookRemove,
}

func init() {
	webhookAddCmd.Flags().StringVarP(&webhookFlagType, "type", "t", "",
		"Webhook type: discord, slack, teams, generic (detected from the URL by default)")
	webhookAddCmd.Flags().StringVar(&webhookFlagEvents, "events", "",
		"Only deliver these notifications: dose, follow_up, missed (default all)")
	webhookRemoveCmd.Flags().BoolVar(&webhookFlagForce, "force", false, "Skip confirmation")

	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookTestCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
	rootCmd.AddCommand(webhookCmd)
}

func runWebhookAdd(cmd *cobra.Command, args []string) error {
	w := model.NewWebhook(args[0], strings.ToLower(webhookFlagType), args[1])
	w.CreatedAt = ctx.Now()
	events, err := parseEvents(webhookFlagEvents)
	if err != nil {
		return err
	}
	w.Events = events

	if err := ctx.Service.AddWebhook(cmd.Context(), w); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"name":    w.Name,
			"type":    w.Type,
			"url":     logging.MaskURL(w.URL),
			"events":  w.Events,
			"enabled": w.Enabled,
		})
	}
	cli := ctx.CLIFormatter()
	cli.Success("Added webhook " + w.Name + " (" + w.Type + ")")
	cli.Muted("Test it with 'medtime webhook test " + w.Name + "'.")
	return nil
}

func parseEvents(s string) ([]model.NotificationType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []model.NotificationType
	for _, part := range strings.Split(s, ",") {
		t := model.NotificationType(strings.ToLower(strings.TrimSpace(part)))
		switch t {
		case model.NotifyDose, model.NotifyFollowUp, model.NotifyMissed:
			out = append(out, t)
		default:
			return nil, errors.NewUserErrorWithField("events", part, "unknown notification type",
				"Use dose, follow_up or missed.")
		}
	}
	return out, nil
}

func runWebhookList(cmd *cobra.Command, args []string) error {
	hooks, err := ctx.Service.ListWebhooks(cmd.Context())
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		masked := make([]model.Webhook, len(hooks))
		for i, w := range hooks {
			masked[i] = *w
			masked[i].URL = logging.MaskURL(w.URL)
		}
		return ctx.Formatter.JSON(map[string]interface{}{
			"webhooks": masked,
			"count":    len(masked),
		})
	}
	ctx.CLIFormatter().PrintWebhooks(hooks)
	return nil
}

func runWebhookTest(cmd *cobra.Command, args []string) error {
	res, err := ctx.Service.TestWebhook(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(res)
	}
	cli := ctx.CLIFormatter()
	if res.Success {
		cli.Success(fmt.Sprintf("Delivered to %s in %dms", res.Webhook, res.DurationMs))
		return nil
	}
	cli.Error("Delivery to " + res.Webhook + " failed: " + res.Error)
	return errors.NewSystemErrorWithOp("webhook test", "test notification not delivered", errors.New(res.Error))
}

func runWebhookRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !confirm(cmd, webhookFlagForce, "Remove webhook "+name+"?") {
		return nil
	}
	if err := ctx.Service.RemoveWebhook(cmd.Context(), name); err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]string{"status": "removed", "webhook": name})
	}
	ctx.CLIFormatter().Success("Removed webhook " + name)
	return nil
}

package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/medtime/internal/runtime"
	"github.com/manav03panchal/medtime/internal/service"
)

// completionService returns the service to complete from. Shell completion
// runs without PersistentPreRunE, so it opens its own runtime when needed.
func completionService() (service.Service, func(), bool) {
	if ctx != nil {
		return ctx.Service, func() {}, true
	}
	opts := runtime.DefaultOptions()
	opts.ConfigPath = flagConfig
	c, err := runtime.New(opts)
	if err != nil {
		return nil, nil, false
	}
	return c.Service, func() { _ = c.Close() }, true
}

// completeReminderArgs completes the first argument with reminder ids.
func completeReminderArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	svc, done, ok := completionService()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	defer done()

	reminders, err := svc.ListReminders(completionContext(cmd))
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []string
	for _, r := range reminders {
		if strings.HasPrefix(r.ID, toComplete) {
			out = append(out, r.ID+"\t"+r.MedicationName)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeAlarmArgs completes the first argument with alarm ids, fired
// ones first.
func completeAlarmArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	svc, done, ok := completionService()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	defer done()

	c := completionContext(cmd)
	seen := make(map[string]bool)
	var out []string
	if pending, err := svc.Pending(c); err == nil {
		for _, p := range pending {
			if strings.HasPrefix(p.AlarmID, toComplete) && !seen[p.AlarmID] {
				seen[p.AlarmID] = true
				out = append(out, p.AlarmID+"\tawaiting a response")
			}
		}
	}
	alarms, err := svc.Alarms(c)
	if err != nil {
		return out, cobra.ShellCompDirectiveNoFileComp
	}
	for _, a := range alarms {
		if strings.HasPrefix(a.AlarmID, toComplete) && !seen[a.AlarmID] {
			seen[a.AlarmID] = true
			out = append(out, a.AlarmID+"\t"+a.FireAt.Format("Mon 15:04"))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeWebhookArgs completes the first argument with webhook names.
func completeWebhookArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	svc, done, ok := completionService()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	defer done()

	hooks, err := svc.ListWebhooks(completionContext(cmd))
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []string
	for _, w := range hooks {
		if strings.HasPrefix(w.Name, toComplete) {
			out = append(out, w.Name+"\t"+w.Type)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completionContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}

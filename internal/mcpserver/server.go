// Package mcpserver exposes medtime to MCP clients over stdio, so an
// assistant can manage reminders and record doses.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/parser"
	"github.com/manav03panchal/medtime/internal/service"
)

const serverName = "medtime"

// Server is the medtime MCP server.
type Server struct {
	mcpServer *server.MCPServer
	svc       service.Service
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides time.Now for date parsing.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates an MCP server over svc.
func NewServer(svc service.Service, version string, opts ...Option) *Server {
	s := &Server{svc: svc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin and stdout until the client hangs up.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List every medication reminder"),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_reminder",
			mcp.WithDescription("Show one medication reminder"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleGetReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Create or replace a medication reminder and schedule its alarms"),
			mcp.WithString("medication", mcp.Required(), mcp.Description("Medication name")),
			mcp.WithString("dosage", mcp.Required(), mcp.Description("Dosage, e.g. 500mg")),
			mcp.WithString("times", mcp.Required(), mcp.Description("Comma-separated times of day, e.g. 08:00,20:00")),
			mcp.WithString("recurrence", mcp.Description("daily (default), weekly:mon,wed,fri or monthly:15")),
			mcp.WithString("start_date", mcp.Description("First day, YYYY-MM-DD or 'tomorrow' (default: today)")),
			mcp.WithString("end_date", mcp.Description("Last day, optional")),
			mcp.WithString("instructions", mcp.Description("Optional instructions, e.g. with food")),
			mcp.WithString("id", mcp.Description("Reminder ID to replace; generated when empty")),
		),
		s.handleAddReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder and cancel its alarms"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("record_dose",
			mcp.WithDescription("Answer a fired alarm: taken, snooze or skip"),
			mcp.WithString("alarm_id", mcp.Required(), mcp.Description("Alarm ID, e.g. <reminder-id>:08:00")),
			mcp.WithString("action", mcp.Required(), mcp.Description("taken, snooze or skip")),
			mcp.WithNumber("minutes", mcp.Description("Snooze length in minutes")),
		),
		s.handleRecordDose,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("adherence",
			mcp.WithDescription("Show the adherence log of a medication"),
			mcp.WithString("medication_id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleAdherence,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_alarms",
			mcp.WithDescription("List scheduled alarms and fired alarms awaiting an answer"),
		),
		s.handleListAlarms,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("sync",
			mcp.WithDescription("Re-sync every reminder's alarms"),
		),
		s.handleSync,
	)
}

// toolError renders err for the client, with the suggestion when there is one.
func toolError(prefix string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s: %v", prefix, err)
	if sug := errors.GetSuggestion(err); sug != "" {
		msg += "\n" + sug
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) handleListReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reminders, err := s.svc.ListReminders(ctx)
	if err != nil {
		return toolError("failed to list reminders", err), nil
	}
	if len(reminders) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}
	return jsonResult(reminders), nil
}

func (s *Server) handleGetReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	r, err := s.svc.GetReminder(ctx, id)
	if err != nil {
		return toolError("failed to get reminder", err), nil
	}
	return jsonResult(r), nil
}

func (s *Server) handleAddReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("medication", ""))
	dosage := strings.TrimSpace(req.GetString("dosage", ""))
	if name == "" || dosage == "" {
		return mcp.NewToolResultError("medication and dosage are required"), nil
	}

	times, err := parser.ParseTimesOfDay(req.GetString("times", ""))
	if err != nil {
		return toolError("invalid times", err), nil
	}
	rec, err := parser.ParseRecurrence(req.GetString("recurrence", "daily"))
	if err != nil {
		return toolError("invalid recurrence", err), nil
	}
	now := s.now()
	start, err := parser.ParseDate(req.GetString("start_date", ""), now)
	if err != nil {
		return toolError("invalid start_date", err), nil
	}
	end, err := parser.ParseOptionalDate(req.GetString("end_date", ""), now)
	if err != nil {
		return toolError("invalid end_date", err), nil
	}

	r := model.NewMedicationReminder(name, dosage, times, rec, start)
	r.ID = strings.TrimSpace(req.GetString("id", ""))
	r.EndDate = end
	r.Instructions = req.GetString("instructions", "")

	saved, err := s.svc.SaveReminder(ctx, r)
	if saved == nil {
		return toolError("failed to save reminder", err), nil
	}
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Reminder %s saved, but its alarms are not scheduled: %v", saved.ID, err)), nil
	}
	return jsonResult(saved), nil
}

func (s *Server) handleDeleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	if err := s.svc.DeleteReminder(ctx, id); err != nil {
		return toolError("failed to delete reminder", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s deleted.", id)), nil
}

func (s *Server) handleRecordDose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ar := service.ActionRequest{
		AlarmID: strings.TrimSpace(req.GetString("alarm_id", "")),
		Action:  req.GetString("action", ""),
		Minutes: req.GetInt("minutes", 0),
	}
	if ar.AlarmID == "" || ar.IsFiring() {
		return mcp.NewToolResultError("alarm_id and action are required"), nil
	}

	out, err := s.svc.Act(ctx, ar)
	if err != nil {
		return toolError("failed to record dose", err), nil
	}
	switch {
	case out.Discarded:
		return mcp.NewToolResultText(fmt.Sprintf("Alarm %s no longer belongs to a reminder; nothing recorded.", ar.AlarmID)), nil
	case out.SnoozeAlarmID != "":
		return mcp.NewToolResultText(fmt.Sprintf("Snoozed until %s.", out.SnoozeFireAt.Format("15:04"))), nil
	case out.Downgraded:
		return mcp.NewToolResultText("Already snoozed once; recorded as skipped."), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("Recorded %s.", out.Status)), nil
	}
}

func (s *Server) handleAdherence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("medication_id", ""))
	if id == "" {
		return mcp.NewToolResultError("medication_id is required"), nil
	}
	log, err := s.svc.Adherence(ctx, id)
	if err != nil {
		return toolError("failed to read adherence", err), nil
	}
	if len(log) == 0 {
		return mcp.NewToolResultText("No doses recorded."), nil
	}
	return jsonResult(log), nil
}

func (s *Server) handleListAlarms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	alarms, err := s.svc.Alarms(ctx)
	if err != nil {
		return toolError("failed to list alarms", err), nil
	}
	pending, err := s.svc.Pending(ctx)
	if err != nil {
		return toolError("failed to list pending firings", err), nil
	}
	return jsonResult(map[string]any{
		"scheduled": alarms,
		"pending":   pending,
	}), nil
}

func (s *Server) handleSync(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.SyncAll(ctx)
	if err != nil {
		return toolError("sync failed", err), nil
	}
	return jsonResult(report), nil
}

package daemon

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/logging"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/service"
)

// Handler serves the daemon's control API over a Service.
type Handler struct {
	svc     service.Service
	health  *HealthChecker
	metrics *Metrics
}

// NewHandler creates an API handler.
func NewHandler(svc service.Service, health *HealthChecker, metrics *Metrics) *Handler {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Handler{svc: svc, health: health, metrics: metrics}
}

// NewApp creates a fiber app with every route registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               AppName,
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	RegisterRoutes(app, h)
	return app
}

// RegisterRoutes mounts the API under /v1.
func RegisterRoutes(app *fiber.App, h *Handler) {
	v1 := app.Group("/v1")
	v1.Get("/health", h.Health)

	reminders := v1.Group("/reminders")
	reminders.Get("", h.ListReminders)
	reminders.Post("", h.SaveReminder)
	reminders.Get("/:id", h.GetReminder)
	reminders.Delete("/:id", h.DeleteReminder)

	v1.Post("/actions", h.Act)
	v1.Get("/act", h.ActLink)
	v1.Get("/adherence/:id", h.Adherence)
	v1.Get("/alarms", h.Alarms)
	v1.Get("/pending", h.Pending)
	v1.Post("/sync", h.Sync)

	v1.Get("/preferences", h.GetPreferences)
	v1.Put("/preferences", h.SetPreferences)

	webhooks := v1.Group("/webhooks")
	webhooks.Get("", h.ListWebhooks)
	webhooks.Post("", h.AddWebhook)
	webhooks.Delete("/:name", h.RemoveWebhook)
	webhooks.Post("/:name/test", h.TestWebhook)

	v1.Post("/data/clear", h.ClearData)
}

// apiError writes err as the JSON error envelope.
func apiError(c *fiber.Ctx, err error) error {
	status, body := service.EncodeError(err)
	if status >= fiber.StatusInternalServerError {
		logging.ErrorContext(c.UserContext(), "api request failed",
			logging.KeyOperation, c.Method()+" "+c.Path(), logging.KeyError, err)
	}
	return c.Status(status).JSON(body)
}

// errorHandler renders errors fiber itself raises, such as unknown routes.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(service.ErrorBody{Error: fe.Message, Kind: service.KindInternal})
	}
	return apiError(c, err)
}

func badBody(err error) error {
	return errors.NewUserError("request body is not valid JSON: "+err.Error(), "")
}

// Health reports daemon health. An unhealthy daemon answers 503.
func (h *Handler) Health(c *fiber.Ctx) error {
	st := h.health.Check(c.UserContext())
	if st.Status == StatusUnhealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(st)
	}
	return c.JSON(st)
}

func (h *Handler) ListReminders(c *fiber.Ctx) error {
	out, err := h.svc.ListReminders(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	if out == nil {
		out = []*model.MedicationReminder{}
	}
	return c.JSON(out)
}

func (h *Handler) GetReminder(c *fiber.Ctx) error {
	r, err := h.svc.GetReminder(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(r)
}

// SaveReminder stores the reminder. A sync failure after a successful
// save is reported as a warning next to the stored reminder.
func (h *Handler) SaveReminder(c *fiber.Ctx) error {
	var in model.MedicationReminder
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, badBody(err))
	}
	saved, err := h.svc.SaveReminder(c.UserContext(), &in)
	if saved == nil {
		return apiError(c, err)
	}
	resp := service.SaveResponse{Reminder: saved}
	if err != nil {
		_, body := service.EncodeError(err)
		resp.Warning = &body
	}
	return c.JSON(resp)
}

func (h *Handler) DeleteReminder(c *fiber.Ctx) error {
	if err := h.svc.DeleteReminder(c.UserContext(), c.Params("id")); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Act handles a delivery callback: a firing report or a user action.
func (h *Handler) Act(c *fiber.Ctx) error {
	var req service.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, badBody(err))
	}
	return h.act(c, req)
}

// ActLink handles the taken/snooze/skip links carried by notifications.
func (h *Handler) ActLink(c *fiber.Ctx) error {
	req := service.ActionRequest{
		AlarmID: c.Query("alarm"),
		Action:  c.Query("action"),
		Minutes: c.QueryInt("minutes"),
	}
	if req.IsFiring() {
		return apiError(c, errors.NewUserErrorWithField("action", "", "action is required",
			"Use one of: taken, snooze, skip."))
	}
	return h.act(c, req)
}

func (h *Handler) act(c *fiber.Ctx, req service.ActionRequest) error {
	out, err := h.svc.Act(c.UserContext(), req)
	if err != nil {
		h.metrics.RecordError("action", err)
		return apiError(c, err)
	}
	if !req.IsFiring() {
		h.metrics.RecordAction()
	}
	return c.JSON(out)
}

func (h *Handler) Adherence(c *fiber.Ctx) error {
	out, err := h.svc.Adherence(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, err)
	}
	if out == nil {
		out = []model.AdherenceLogEntry{}
	}
	return c.JSON(out)
}

func (h *Handler) Alarms(c *fiber.Ctx) error {
	out, err := h.svc.Alarms(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	if out == nil {
		out = []model.ScheduledAlarm{}
	}
	return c.JSON(out)
}

func (h *Handler) Pending(c *fiber.Ctx) error {
	out, err := h.svc.Pending(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	if out == nil {
		out = []model.PendingFiring{}
	}
	return c.JSON(out)
}

func (h *Handler) Sync(c *fiber.Ctx) error {
	report, err := h.svc.SyncAll(c.UserContext())
	if err != nil {
		h.metrics.RecordError("sync", err)
		return apiError(c, err)
	}
	return c.JSON(report)
}

func (h *Handler) GetPreferences(c *fiber.Ctx) error {
	p, err := h.svc.Preferences(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) SetPreferences(c *fiber.Ctx) error {
	var p model.NotificationPreferences
	if err := c.BodyParser(&p); err != nil {
		return apiError(c, badBody(err))
	}
	report, err := h.svc.SetPreferences(c.UserContext(), p)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(report)
}

func (h *Handler) ListWebhooks(c *fiber.Ctx) error {
	out, err := h.svc.ListWebhooks(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	if out == nil {
		out = []*model.Webhook{}
	}
	return c.JSON(out)
}

func (h *Handler) AddWebhook(c *fiber.Ctx) error {
	var w model.Webhook
	if err := c.BodyParser(&w); err != nil {
		return apiError(c, badBody(err))
	}
	if err := h.svc.AddWebhook(c.UserContext(), &w); err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(&w)
}

func (h *Handler) RemoveWebhook(c *fiber.Ctx) error {
	if err := h.svc.RemoveWebhook(c.UserContext(), c.Params("name")); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) TestWebhook(c *fiber.Ctx) error {
	res, err := h.svc.TestWebhook(c.UserContext(), c.Params("name"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(res)
}

// ClearData requires ?confirm=yes so a stray request cannot wipe the log.
func (h *Handler) ClearData(c *fiber.Ctx) error {
	if !strings.EqualFold(c.Query("confirm"), "yes") {
		return apiError(c, errors.NewUserErrorWithField("confirm", c.Query("confirm"),
			"clearing data needs confirmation", "Pass confirm=yes."))
	}
	res, err := h.svc.ClearData(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(res)
}

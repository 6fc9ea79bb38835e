package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vetdesk/notify/internal/domain/notification"
	"github.com/vetdesk/notify/internal/repository/postgres"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Handler struct {
	UC  *Usecase
	Log *zap.Logger
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/notifications", h.Create)
	g.GET("/notifications/pending", h.ListPending)
	g.GET("/notifications/:id", h.Get)
	g.POST("/notifications/:id/resend", h.Resend)
	g.POST("/notification-templates/preview", h.Preview)
}

type createRequest struct {
	Key         string              `json:"key"`
	TemplateKey string              `json:"template_key"`
	Channel     string              `json:"channel"`
	UserID      *int64              `json:"user_id,omitempty"`
	Target      notification.Target `json:"target"`
	Payload     map[string]any      `json:"payload"`
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
	Locale      string              `json:"locale"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "INVALID_INPUT", "invalid notification input")
	}

	n, err := h.UC.Create(c.Request().Context(), CreateInput{
		Key:         req.Key,
		TemplateKey: req.TemplateKey,
		Channel:     notification.Channel(req.Channel),
		UserID:      req.UserID,
		Target:      req.Target,
		Payload:     req.Payload,
		ScheduledAt: req.ScheduledAt,
		Locale:      req.Locale,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return respond(c, http.StatusCreated, n)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "INVALID_ID", "id must be an integer")
	}
	n, err := h.UC.Get(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return respond(c, http.StatusOK, n)
}

func (h *Handler) ListPending(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	out, err := h.UC.ListPending(c.Request().Context(), limit)
	if err != nil {
		return h.mapError(c, err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *Handler) Resend(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "INVALID_ID", "id must be an integer")
	}
	n, err := h.UC.Resend(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return respond(c, http.StatusOK, n)
}

type previewRequest struct {
	TemplateKey string         `json:"template_key"`
	Locale      string         `json:"locale"`
	Payload     map[string]any `json:"payload"`
}

func (h *Handler) Preview(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "INVALID_INPUT", "invalid preview input")
	}
	out, err := h.UC.Preview(c.Request().Context(), PreviewInput{
		TemplateKey: req.TemplateKey,
		Locale:      req.Locale,
		Payload:     req.Payload,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return respond(c, http.StatusOK, out)
}

func (h *Handler) mapError(c echo.Context, err error) error {
	var (
		missingTarget *notification.MissingTargetError
		badChannel    *notification.UnsupportedChannelError
	)
	switch {
	case errors.Is(err, ErrValidation):
		return badRequest(c, "VALIDATION_ERROR", err.Error())
	case errors.As(err, &badChannel):
		return badRequest(c, "UNSUPPORTED_CHANNEL", badChannel.Error())
	case errors.As(err, &missingTarget):
		return badRequest(c, "MISSING_TARGET", missingTarget.Error())
	case errors.Is(err, notification.ErrTemplateNotFound):
		return notFound(c, "TEMPLATE_NOT_FOUND", err.Error())
	case errors.Is(err, postgres.ErrNotFound):
		return notFound(c, "NOT_FOUND", "notification not found")
	case errors.Is(err, postgres.ErrConflict):
		return conflict(c, "NOT_FAILED", "only failed notifications can be resent")
	}
	h.Log.Error("api error", zap.Error(err))
	return internalErr(c)
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

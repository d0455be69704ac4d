package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/dto"
	"github.com/noah-isme/gema-admin-query/internal/service"
	"github.com/noah-isme/gema-admin-query/internal/utils"
)

// SessionHandler exposes admin query sessions over HTTP.
type SessionHandler struct {
	service   service.SessionService
	validate  *validator.Validate
	queryRate fiber.Handler
	fallback  string
	logger    zerolog.Logger
}

// NewSessionHandler constructs a session handler. queryRate, when non-nil,
// guards the query endpoint.
func NewSessionHandler(sessions service.SessionService, queryRate fiber.Handler, logger zerolog.Logger) *SessionHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return jsonFieldName(field.Tag.Get("json"))
	})

	return &SessionHandler{
		service:   sessions,
		validate:  validate,
		queryRate: queryRate,
		logger:    logger.With().Str("component", "session_handler").Logger(),
	}
}

// WithDefaultCredential sets the credential used when a request omits api_key.
func (h *SessionHandler) WithDefaultCredential(credential string) *SessionHandler {
	h.fallback = strings.TrimSpace(credential)
	return h
}

// Register wires admin and session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("/admins", h.listAdmins)

	sessions := router.Group("/sessions")
	sessions.Post("", h.open)
	sessions.Get("/:id", h.get)
	sessions.Put("/:id", h.switchAdmin)
	sessions.Delete("/:id", h.close)
	if h.queryRate != nil {
		sessions.Post("/:id/queries", h.queryRate, h.query)
	} else {
		sessions.Post("/:id/queries", h.query)
	}
	sessions.Get("/:id/history", h.history)
	sessions.Delete("/:id/history", h.clearHistory)
}

func (h *SessionHandler) listAdmins(c *fiber.Ctx) error {
	scopes := h.service.Admins()
	admins := make([]dto.AdminResponse, 0, len(scopes))
	for _, scope := range scopes {
		admins = append(admins, dto.AdminResponse{
			AdminID: scope.AdminID,
			Name:    scope.Name,
			Scope:   scope.Describe(),
		})
	}
	return utils.OK(c, admins, "admins retrieved", nil)
}

func (h *SessionHandler) open(c *fiber.Ctx) error {
	var payload dto.OpenSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}
	if strings.TrimSpace(payload.APIKey) == "" {
		payload.APIKey = h.fallback
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	info, err := h.service.Open(c.UserContext(), strings.TrimSpace(payload.AdminID), payload.APIKey)
	if err != nil {
		return h.fail(c, err, "failed to open session")
	}

	requestLogger(h.logger, c).Info().Str("session_id", info.ID).Str("admin_id", info.AdminID).Msg("session opened")
	return utils.Respond(c, fiber.StatusCreated, info, "session opened", nil)
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	info, err := h.service.Get(c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to load session")
	}
	return utils.OK(c, info, "session retrieved", nil)
}

func (h *SessionHandler) switchAdmin(c *fiber.Ctx) error {
	var payload dto.SwitchSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}
	if strings.TrimSpace(payload.APIKey) == "" {
		payload.APIKey = h.fallback
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	info, err := h.service.Switch(c.UserContext(), c.Params("id"), strings.TrimSpace(payload.AdminID), payload.APIKey)
	if err != nil {
		return h.fail(c, err, "failed to switch session")
	}
	return utils.OK(c, info, "session switched", nil)
}

func (h *SessionHandler) close(c *fiber.Ctx) error {
	if err := h.service.Close(c.Params("id")); err != nil {
		return h.fail(c, err, "failed to close session")
	}
	return utils.OK(c, nil, "session closed", nil)
}

func (h *SessionHandler) query(c *fiber.Ctx) error {
	var payload dto.QueryRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	sessionID := c.Params("id")
	answer, err := h.service.Query(c.UserContext(), sessionID, payload.Question)
	if err != nil {
		return h.fail(c, err, "failed to process query")
	}
	return utils.OK(c, dto.QueryResponse{SessionID: sessionID, Answer: answer}, "query processed", nil)
}

func (h *SessionHandler) history(c *fiber.Ctx) error {
	turns, err := h.service.History(c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to load history")
	}
	if turns == nil {
		turns = []service.Turn{}
	}
	return utils.OK(c, turns, "history retrieved", dto.HistoryMeta{Turns: len(turns)})
}

func (h *SessionHandler) clearHistory(c *fiber.Ctx) error {
	if err := h.service.ClearHistory(c.Params("id")); err != nil {
		return h.fail(c, err, "failed to clear history")
	}
	return utils.OK(c, nil, "history cleared", nil)
}

func (h *SessionHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, access.ErrUnknownAdmin):
		return utils.Fail(c, fiber.StatusNotFound, "admin not found", nil)
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "session not found", nil)
	case errors.Is(err, service.ErrSessionNotReady):
		return utils.Fail(c, fiber.StatusConflict, "session is not initialized", nil)
	case errors.Is(err, service.ErrInitialization):
		requestLogger(h.logger, c).Warn().Err(err).Msg("agent initialization failed")
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "failed to initialize query agent", nil)
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.Fail(c, fiber.StatusInternalServerError, message, nil)
	}
}

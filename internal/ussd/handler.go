package ussd

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the gateway HTTP endpoint.
type Handler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewHandler builds the gateway handler.
func NewHandler(dispatcher *Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger}
}

type gatewayRequest struct {
	SessionID   string `json:"sessionId" form:"sessionId"`
	ServiceCode string `json:"serviceCode" form:"serviceCode"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
	Text        string `json:"text" form:"text"`
}

// Serve handles one gateway callback. The response body is plain text and
// always begins with CON or END; any panic below collapses into a generic END
// so the gateway never leaves the caller on a hung session.
func (h *Handler) Serve(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("ussd handler panic", "panic", r)
			err = respond(c, genericFailure)
		}
	}()

	var req gatewayRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warn("unparseable gateway request", "error", err)
		return respond(c, genericFailure)
	}
	if req.PhoneNumber == "" {
		return respond(c, invalidOption)
	}

	resp := h.dispatcher.Handle(c.UserContext(), req.PhoneNumber, req.Text)
	return respond(c, resp)
}

// Greeting answers health-check GETs on the root path.
func (h *Handler) Greeting(c *fiber.Ctx) error {
	return respond(c, "Hello, World!")
}

func respond(c *fiber.Ctx, body string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(http.StatusOK).SendString(body)
}

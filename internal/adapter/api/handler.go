package api

import (
	"errors"
	"log"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
	"steward-core/internal/registry"
	"steward-core/internal/usecase"
)

// ChatHandler is the delivery layer for the routing pipeline.
type ChatHandler struct {
	router  *usecase.Router
	limiter repository.TokenLimiter // nil disables the session budget
}

// NewChatHandler wires the chat endpoint.
func NewChatHandler(router *usecase.Router, limiter repository.TokenLimiter) *ChatHandler {
	return &ChatHandler{router: router, limiter: limiter}
}

// HandleChat maps the business outcomes to HTTP: the caller always gets a
// response object except for NoProviderAvailable (503) so the voice layer
// can play its fallback message.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req entity.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if h.limiter != nil && req.SessionID != "" {
		allowed, err := h.limiter.CheckLimit(c.Context(), req.SessionID)
		if err != nil {
			log.Printf("[API] limiter check failed, allowing request: %v", err)
		} else if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": entity.ErrRateLimitExceeded.Error()})
		}
	}

	resp, err := h.router.Route(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrEmptyMessage), errors.Is(err, registry.ErrUnknownModel):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, entity.ErrNoProviderAvailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("[API] routing failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "generation failed on all providers"})
		}
	}

	if h.limiter != nil && req.SessionID != "" && !resp.CacheHit {
		// Rough token accounting: ~4 characters per token.
		spent := utf8.RuneCountInString(req.Message+resp.Text) / 4
		if err := h.limiter.Increment(c.Context(), req.SessionID, spent); err != nil {
			log.Printf("[API] limiter increment failed: %v", err)
		}
	}

	c.Set("X-Steward-Cache-Hit", "false")
	if resp.CacheHit {
		c.Set("X-Steward-Cache-Hit", "true")
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

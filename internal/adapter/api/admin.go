package api

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"steward-core/internal/config"
	"steward-core/internal/registry"
	"steward-core/internal/usecase"
)

// AdminHandler exposes the configuration and registry surface consumed by
// the admin UI.
type AdminHandler struct {
	cfg      *config.Store
	registry *registry.Registry
	prober   *usecase.Prober // nil disables the probe endpoint
}

// NewAdminHandler wires the administrative endpoints.
func NewAdminHandler(cfg *config.Store, reg *registry.Registry, prober *usecase.Prober) *AdminHandler {
	return &AdminHandler{cfg: cfg, registry: reg, prober: prober}
}

// GetEffectiveConfig resolves the merged configuration for the provider
// and model named in the query string (either may be empty).
func (h *AdminHandler) GetEffectiveConfig(c *fiber.Ctx) error {
	resolved := h.cfg.Resolve(c.Query("provider"), c.Query("model"))
	return c.Status(fiber.StatusOK).JSON(resolved)
}

type updateScopeRequest struct {
	Scope string `json:"scope"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// UpdateScope applies a single-field configuration write. A rejected
// update reports the reason and leaves the hierarchy untouched.
func (h *AdminHandler) UpdateScope(c *fiber.Ctx) error {
	var req updateScopeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}

	if err := h.cfg.Update(req.Scope, req.Field, req.Value); err != nil {
		var ce *config.ConfigError
		if errors.As(err, &ce) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": ce.Error()})
		}
		log.Printf("[ADMIN] config update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal error"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

// ListProviders returns every provider with its current liveness.
func (h *AdminHandler) ListProviders(c *fiber.Ctx) error {
	descs := h.registry.ListProviders()
	out := make([]fiber.Map, 0, len(descs))
	for _, d := range descs {
		out = append(out, fiber.Map{
			"id":     d.ID,
			"kind":   d.Kind,
			"status": d.Status.String(),
			"models": d.Models,
		})
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

// ExportConfig dumps the full stored hierarchy for backup.
func (h *AdminHandler) ExportConfig(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.cfg.Snapshot())
}

// ProbeProvider re-checks one provider's liveness on demand.
func (h *AdminHandler) ProbeProvider(c *fiber.Ctx) error {
	if h.prober == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "probing not configured"})
	}
	providerID := c.Params("id")
	err := h.prober.Probe(c.Context(), providerID)
	status, statusErr := h.registry.Status(providerID)
	if statusErr != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": statusErr.Error()})
	}
	resp := fiber.Map{"provider": providerID, "status": status.String()}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

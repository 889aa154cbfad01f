package handlers

import (
	"strconv"
	"time"

	"github.com/familyassistant/safety-engine/internal/dto"
	"github.com/familyassistant/safety-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) Query(c *fiber.Ctx) error {
	var q services.AuditQuery
	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid actor_id",
			})
		}
		q.ActorID = &actorID
	}
	q.Action = c.Query("action")
	q.ResourceType = c.Query("resource_type")
	q.Limit, _ = strconv.Atoi(c.Query("limit", "100"))

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid since, expected RFC3339",
			})
		}
		q.Since = &since
	}
	if raw := c.Query("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid until, expected RFC3339",
			})
		}
		q.Until = &until
	}

	events, err := h.auditService.QueryEvents(q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": events, "total": len(events)})
}

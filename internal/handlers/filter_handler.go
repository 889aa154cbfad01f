package handlers

import (
	"strconv"

	"github.com/familyassistant/safety-engine/internal/dto"
	"github.com/familyassistant/safety-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FilterHandler struct {
	filterService *services.ContentFilterService
}

func NewFilterHandler(filterService *services.ContentFilterService) *FilterHandler {
	return &FilterHandler{filterService: filterService}
}

func (h *FilterHandler) Check(c *fiber.Ctx) error {
	var req dto.CheckContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	result, err := h.filterService.CheckContent(req.ChildID, req.ContentType, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *FilterHandler) Logs(c *fiber.Ctx) error {
	var q services.FilterLogQuery
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid user_id",
			})
		}
		q.UserID = &userID
	}
	q.Severity = c.Query("severity")
	q.Action = c.Query("action")
	q.Limit, _ = strconv.Atoi(c.Query("limit", "100"))

	logs, err := h.filterService.GetFilterLogs(q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"logs": logs, "total": len(logs)})
}

func (h *FilterHandler) Stats(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user_id",
		})
	}
	days, _ := strconv.Atoi(c.Query("days", "7"))

	stats, err := h.filterService.GetFilterStats(userID, days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

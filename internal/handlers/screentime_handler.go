package handlers

import (
	"strconv"
	"time"

	"github.com/familyassistant/safety-engine/internal/dto"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/familyassistant/safety-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ScreenTimeHandler struct {
	screenTimeService *services.ScreenTimeService
}

func NewScreenTimeHandler(screenTimeService *services.ScreenTimeService) *ScreenTimeHandler {
	return &ScreenTimeHandler{screenTimeService: screenTimeService}
}

func (h *ScreenTimeHandler) Record(c *fiber.Ctx) error {
	var req dto.RecordUsageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	day := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse(models.DateKeyLayout, req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid date, expected YYYY-MM-DD", Field: "date",
			})
		}
		day = parsed
	}

	status, err := h.screenTimeService.RecordUsage(req.UserID, day, req.Minutes, req.ActivityType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func (h *ScreenTimeHandler) DayLog(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}
	day, err := time.Parse(models.DateKeyLayout, c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid date, expected YYYY-MM-DD",
		})
	}

	status, err := h.screenTimeService.GetDayLog(userID, day)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func (h *ScreenTimeHandler) History(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}
	days, _ := strconv.Atoi(c.Query("days", "7"))

	logs, err := h.screenTimeService.GetHistory(userID, days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"logs": logs, "total": len(logs)})
}

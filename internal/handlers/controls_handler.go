package handlers

import (
	"github.com/familyassistant/safety-engine/internal/dto"
	"github.com/familyassistant/safety-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ControlsHandler struct {
	controlsService *services.ControlsService
	filterService   *services.ContentFilterService
}

func NewControlsHandler(controlsService *services.ControlsService, filterService *services.ContentFilterService) *ControlsHandler {
	return &ControlsHandler{controlsService: controlsService, filterService: filterService}
}

func (h *ControlsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateControlsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	controls, err := h.controlsService.CreateControls(req.ChildID, req.ParentID, services.ControlsInput{
		ScreenTimeEnabled:     req.ScreenTimeEnabled,
		DailyLimitMinutes:     req.DailyLimitMinutes,
		WeekdayLimitMinutes:   req.WeekdayLimitMinutes,
		WeekendLimitMinutes:   req.WeekendLimitMinutes,
		QuietHoursStart:       req.QuietHoursStart,
		QuietHoursEnd:         req.QuietHoursEnd,
		ContentFilterLevel:    req.ContentFilterLevel,
		BlockedKeywords:       req.BlockedKeywords,
		BlockedDomains:        req.BlockedDomains,
		AllowedDomains:        req.AllowedDomains,
		NotifyOnFlagged:       req.NotifyOnFlagged,
		NotifyOnLimitExceeded: req.NotifyOnLimitExceeded,
	}, actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(controls)
}

func (h *ControlsHandler) Update(c *fiber.Ctx) error {
	childID, err := uuid.Parse(c.Params("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid child ID",
		})
	}

	var req dto.UpdateControlsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	controls, err := h.controlsService.UpdateControls(childID, req.ParentID, services.ControlsPatch{
		ScreenTimeEnabled:     req.ScreenTimeEnabled,
		DailyLimitMinutes:     req.DailyLimitMinutes,
		WeekdayLimitMinutes:   req.WeekdayLimitMinutes,
		WeekendLimitMinutes:   req.WeekendLimitMinutes,
		QuietHoursStart:       req.QuietHoursStart,
		QuietHoursEnd:         req.QuietHoursEnd,
		ContentFilterLevel:    req.ContentFilterLevel,
		BlockedKeywords:       req.BlockedKeywords,
		BlockedDomains:        req.BlockedDomains,
		AllowedDomains:        req.AllowedDomains,
		NotifyOnFlagged:       req.NotifyOnFlagged,
		NotifyOnLimitExceeded: req.NotifyOnLimitExceeded,
	}, actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(controls)
}

func (h *ControlsHandler) List(c *fiber.Ctx) error {
	childID, err := uuid.Parse(c.Params("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid child ID",
		})
	}

	controls, err := h.controlsService.GetControls(childID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"controls": controls, "total": len(controls)})
}

func (h *ControlsHandler) Effective(c *fiber.Ctx) error {
	childID, err := uuid.Parse(c.Params("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid child ID",
		})
	}

	eff, err := h.controlsService.GetEffectiveControls(childID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(eff)
}

func (h *ControlsHandler) AddKeyword(c *fiber.Ctx) error {
	childID, err := uuid.Parse(c.Params("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid child ID",
		})
	}

	var req dto.KeywordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	controls, err := h.filterService.AddBlockedKeyword(childID, req.ParentID, req.Keyword, actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(controls)
}

func (h *ControlsHandler) RemoveKeyword(c *fiber.Ctx) error {
	childID, err := uuid.Parse(c.Params("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid child ID",
		})
	}
	parentID, err := uuid.Parse(c.Query("parent_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid parent_id",
		})
	}

	controls, err := h.filterService.RemoveBlockedKeyword(childID, parentID, c.Params("keyword"), actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(controls)
}

func (h *ControlsHandler) AddBlockedDomain(c *fiber.Ctx) error {
	childID, err := uuid.Parse(c.Params("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid child ID",
		})
	}

	var req dto.DomainRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	controls, err := h.filterService.AddBlockedDomain(childID, req.ParentID, req.Domain, actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(controls)
}

func (h *ControlsHandler) AddAllowedDomain(c *fiber.Ctx) error {
	childID, err := uuid.Parse(c.Params("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid child ID",
		})
	}

	var req dto.DomainRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	controls, err := h.filterService.AddAllowedDomain(childID, req.ParentID, req.Domain, actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(controls)
}

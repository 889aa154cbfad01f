package handlers

import (
	"github.com/familyassistant/safety-engine/internal/dto"
	"github.com/familyassistant/safety-engine/internal/middleware"
	"github.com/familyassistant/safety-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PermissionHandler struct {
	permissionService *services.PermissionService
}

func NewPermissionHandler(permissionService *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

func (h *PermissionHandler) Check(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user_id",
		})
	}
	permission := c.Query("permission")
	if permission == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "permission query parameter is required",
		})
	}

	allowed, err := h.permissionService.HasPermission(userID, permission)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PermissionCheckResponse{
		UserID:     userID,
		Permission: permission,
		Allowed:    allowed,
	})
}

func (h *PermissionHandler) Grant(c *fiber.Ctx) error {
	actorID, err := middleware.GetActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.GrantPermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	override, err := h.permissionService.GrantPermission(req.UserID, req.Permission, actorID, req.Reason, req.ExpiresAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(override)
}

func (h *PermissionHandler) Revoke(c *fiber.Ctx) error {
	actorID, err := middleware.GetActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.RevokePermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	override, err := h.permissionService.RevokePermission(req.UserID, req.Permission, actorID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(override)
}

func (h *PermissionHandler) ListForMember(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid member ID",
		})
	}

	overrides, err := h.permissionService.ListUserPermissions(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"permissions": overrides, "total": len(overrides)})
}

package handlers

import (
	"github.com/familyassistant/safety-engine/internal/dto"
	"github.com/familyassistant/safety-engine/internal/middleware"
	"github.com/familyassistant/safety-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// actorPtr returns the acting member's id, or nil when the request was
// authorized via the admin token and carries no JWT.
func actorPtr(c *fiber.Ctx) *uuid.UUID {
	id, err := middleware.GetActorID(c)
	if err != nil {
		return nil
	}
	return &id
}

func (h *MemberHandler) Enroll(c *fiber.Ctx) error {
	var req dto.EnrollMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	member, err := h.memberService.EnrollMember(services.EnrollMemberInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		SafetyLevel: req.SafetyLevel,
	}, actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(member)
}

func (h *MemberHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid member ID",
		})
	}

	member, err := h.memberService.GetMember(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(member)
}

func (h *MemberHandler) List(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("include_inactive", false)

	members, err := h.memberService.ListMembers(includeInactive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"members": members, "total": len(members)})
}

func (h *MemberHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid member ID",
		})
	}

	var req dto.UpdateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	member, err := h.memberService.UpdateMember(id, services.UpdateMemberInput{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		SafetyLevel: req.SafetyLevel,
	}, actorPtr(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(member)
}

func (h *MemberHandler) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid member ID",
		})
	}

	if err := h.memberService.DeactivateMember(id, actorPtr(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Member deactivated"})
}

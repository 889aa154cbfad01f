package dto

type EnrollMemberRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	SafetyLevel string `json:"safety_level,omitempty"`
}

type UpdateMemberRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Role        *string `json:"role,omitempty"`
	SafetyLevel *string `json:"safety_level,omitempty"`
}

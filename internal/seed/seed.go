// Package seed installs the permission catalog and the role-default
// grant matrix. The matrix is plain data so the default permission set
// is auditable in one place; Apply is idempotent and safe to run on
// every startup.
package seed

import (
	"fmt"
	"log/slog"

	"github.com/familyassistant/safety-engine/internal/models"
	"gorm.io/gorm"
)

// Version identifies the seed data revision. Bump it when the catalog
// or the matrix changes so deployments can tell which defaults they run.
const Version = 3

type permissionDef struct {
	Name        string
	Resource    string
	Action      string
	Description string
}

// Catalog is the full permission reference set.
var Catalog = []permissionDef{
	{Name: "chat:send", Resource: "chat", Action: "send", Description: "Send messages to the assistant"},
	{Name: "chat:voice", Resource: "chat", Action: "voice", Description: "Use voice input"},
	{Name: "memory:read", Resource: "memory", Action: "read", Description: "Read own conversation memory"},
	{Name: "memory:manage", Resource: "memory", Action: "manage", Description: "Edit or purge stored memories"},
	{Name: "notes:read", Resource: "notes", Action: "read", Description: "View family notes"},
	{Name: "notes:write", Resource: "notes", Action: "write", Description: "Create and edit family notes"},
	{Name: "tasks:read", Resource: "tasks", Action: "read", Description: "View family tasks"},
	{Name: "tasks:write", Resource: "tasks", Action: "write", Description: "Create and edit family tasks"},
	{Name: "calendar:read", Resource: "calendar", Action: "read", Description: "View the family calendar"},
	{Name: "calendar:write", Resource: "calendar", Action: "write", Description: "Manage calendar events"},
	{Name: "finance:read", Resource: "finance", Action: "read", Description: "View household finance data"},
	{Name: "finance:write", Resource: "finance", Action: "write", Description: "Manage household finance data"},
	{Name: "homework:help", Resource: "homework", Action: "help", Description: "Use the homework helper"},
	{Name: "members:manage", Resource: "members", Action: "manage", Description: "Enroll and deactivate family members"},
	{Name: "permissions:manage", Resource: "permissions", Action: "manage", Description: "Grant and revoke permission overrides"},
	{Name: "controls:manage", Resource: "controls", Action: "manage", Description: "Configure parental controls"},
	{Name: "audit:read", Resource: "audit", Action: "read", Description: "Query the audit trail"},
}

// roleMatrix lists the permissions granted by default per role.
// Anything absent is denied, so the full policy is auditable as data.
var roleMatrix = map[string][]string{
	models.RoleParent: {
		"chat:send", "chat:voice", "memory:read", "memory:manage",
		"notes:read", "notes:write", "tasks:read", "tasks:write",
		"calendar:read", "calendar:write", "finance:read", "finance:write",
		"members:manage", "permissions:manage", "controls:manage", "audit:read",
	},
	models.RoleGrandparent: {
		"chat:send", "chat:voice", "memory:read",
		"notes:read", "notes:write", "tasks:read",
		"calendar:read", "calendar:write", "controls:manage",
	},
	models.RoleTeenager: {
		"chat:send", "chat:voice", "memory:read",
		"notes:read", "notes:write", "tasks:read", "tasks:write",
		"calendar:read", "homework:help",
	},
	models.RoleChild: {
		"chat:send", "memory:read",
		"notes:read", "tasks:read", "tasks:write",
		"calendar:read", "homework:help",
	},
	models.RoleMember: {
		"chat:send", "memory:read",
		"notes:read", "tasks:read", "calendar:read",
	},
}

// Apply installs the catalog and the role matrix, creating only the
// rows that do not exist yet.
func Apply(db *gorm.DB) error {
	permIDs := make(map[string]models.Permission, len(Catalog))

	for _, def := range Catalog {
		perm := models.Permission{
			Name:        def.Name,
			Resource:    def.Resource,
			Action:      def.Action,
			Description: def.Description,
		}
		if err := db.Where("name = ?", def.Name).FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", def.Name, err)
		}
		permIDs[def.Name] = perm
	}

	seeded := 0
	for role, grants := range roleMatrix {
		for _, name := range grants {
			perm, ok := permIDs[name]
			if !ok {
				return fmt.Errorf("role matrix references unknown permission %s", name)
			}
			rp := models.RolePermission{
				Role:         role,
				PermissionID: perm.ID,
				Granted:      true,
			}
			res := db.Where("role = ? AND permission_id = ?", role, perm.ID).FirstOrCreate(&rp)
			if res.Error != nil {
				return fmt.Errorf("seed role grant %s/%s: %w", role, name, res.Error)
			}
			if res.RowsAffected > 0 {
				seeded++
			}
		}
	}

	slog.Info("permission seed applied", "version", Version, "catalog", len(Catalog), "new_grants", seeded)
	return nil
}

package model

import "github.com/google/uuid"

// Principal identifies who triggered an operation. It is passed explicitly
// into every service call instead of being read from ambient session state.
type Principal struct {
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	RoleCode   string    `json:"role_code"`
	Privileges []string  `json:"privileges"`
}

// StorefrontPrincipal is the identity used for anonymous storefront checkouts.
var StorefrontPrincipal = Principal{Name: "storefront", RoleCode: "GUEST"}

// AuditName is the value written to created_by / updated_by columns.
func (p Principal) AuditName() string {
	if p.UserID != uuid.Nil {
		return p.UserID.String()
	}
	if p.Name != "" {
		return p.Name
	}
	return "system"
}

func (p Principal) Can(privilege string) bool {
	for _, code := range p.Privileges {
		if code == privilege {
			return true
		}
	}
	return false
}

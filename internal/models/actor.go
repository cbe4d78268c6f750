package models

// Actor identifies the authenticated user performing an operation. Services
// take it as an explicit parameter so permission checks and audit attribution
// never depend on ambient state.
type Actor struct {
	UserID int      `json:"user_id"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Areas  []string `json:"areas,omitempty"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccessArea reports whether the actor may operate on customers in the
// given collection area. Admins can reach every area; employees only their
// assigned ones.
func (a Actor) CanAccessArea(area string) bool {
	if a.IsAdmin() {
		return true
	}
	for _, assigned := range a.Areas {
		if assigned == area {
			return true
		}
	}
	return false
}

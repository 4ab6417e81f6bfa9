package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWorker   Role = "worker"
	RoleAdmin    Role = "admin"
	// RoleSystem is used by background sweeps; it is never issued in a token.
	RoleSystem Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated identity behind a request.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// Privileged actors bypass ownership checks.
func (a Actor) Privileged() bool {
	return a.IsAdmin() || a.IsSystem()
}

func SystemActor() Actor {
	return Actor{ID: "system", Role: RoleSystem}
}

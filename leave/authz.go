package leave

// =============================================================================
// AUTHORIZATION - Injected capability checks
// =============================================================================

// Authorization is the single capability interface the state machine
// consults. The runtime role checks scattered through a typical HR app are
// collapsed into these two questions; implementers choose whatever
// access-control representation fits (role sets, policy objects, tokens).
type Authorization interface {
	// IsPrivileged reports whether the actor is admin/HR-equivalent:
	// may file on behalf of other users and is exempt from advance notice
	// when doing so.
	IsPrivileged(actor Actor) bool

	// CanApprove reports whether the actor may approve or reject the request.
	CanApprove(actor Actor, r *Request) bool
}

// RoleAuthorizer is the default role-set Authorization.
type RoleAuthorizer struct{}

func (RoleAuthorizer) IsPrivileged(actor Actor) bool {
	return actor.Role == RoleHR || actor.Role == RoleAdmin
}

// CanApprove grants approval to managers, HR and admins. Nobody approves
// their own request.
func (RoleAuthorizer) CanApprove(actor Actor, r *Request) bool {
	if actor.ID == r.UserID {
		return false
	}
	switch actor.Role {
	case RoleManager, RoleHR, RoleAdmin:
		return true
	}
	return false
}

var _ Authorization = RoleAuthorizer{}

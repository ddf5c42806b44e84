package core

import "gardencore/pkg/domain"

// Authorizer gates mutations before they execute. It is evaluated inside the
// transaction, against the same snapshot the mutation will see.
type Authorizer interface {
	Authorize(view TransactionView, caller Caller, action domain.Action, entity domain.EntityType) error
}

// RoleGate is the default authorization policy: anyone may create and read,
// but updates and deletes require the caller to resolve to a stored user
// holding the admin role.
type RoleGate struct{}

// Authorize implements Authorizer.
func (RoleGate) Authorize(view TransactionView, caller Caller, action domain.Action, _ domain.EntityType) error {
	if action == domain.ActionCreate {
		return nil
	}
	if caller.ID == 0 {
		return domain.NewUnauthorized("anonymous callers may not %s records", action)
	}
	user, ok := view.FindUser(caller.ID)
	if !ok {
		return domain.NewUnauthorized("caller %d is not a registered user", caller.ID)
	}
	if user.Role != domain.RoleAdmin {
		return domain.NewUnauthorized("caller %d lacks the admin role", caller.ID)
	}
	return nil
}

// AllowAll disables the authorization gate. Used by tests and single-tenant
// deployments.
type AllowAll struct{}

// Authorize implements Authorizer.
func (AllowAll) Authorize(TransactionView, Caller, domain.Action, domain.EntityType) error {
	return nil
}

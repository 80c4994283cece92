package ucsm

import (
	"context"
)

// Plane abstracts authentication against a management plane.
type Plane interface {
	// Login authenticates and returns a handle bound to the new connection.
	Login(ctx context.Context, user, password, address string) (Handle, error)
}

// Handle abstracts calls over one authenticated management plane connection.
//
// AddMo and RemoveMo only stage changes, Commit submits everything staged since
// the previous Commit in one request.
type Handle interface {
	Logout(ctx context.Context) error
	// QueryDn returns the object at dn, or nil when it does not exist.
	QueryDn(ctx context.Context, dn string) (*ManagedObject, error)
	QueryClass(ctx context.Context, classID string) ([]*ManagedObject, error)
	AddMo(mo *ManagedObject, modifyPresent bool)
	RemoveMo(mo *ManagedObject)
	// Commit returns a *RemoteError when the plane rejects the change.
	Commit(ctx context.Context) error
}

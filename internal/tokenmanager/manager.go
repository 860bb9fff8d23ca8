package tokenmanager

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks integration mistakes by the host application.
	ErrConfiguration = errors.New("configuration error")

	// ErrAlreadyBound is returned when binding a manager that already has an owner.
	ErrAlreadyBound = fmt.Errorf("%w: owner can only be bound once and is done automatically", ErrConfiguration)

	// ErrNotImplemented is returned by hooks a manager variant did not override.
	ErrNotImplemented = errors.New("not implemented")
)

// Authorizer is the view of an OAuth2 authorizer the hooks operate on.
// An empty refresh token means the authorizer has not been given one yet.
type Authorizer interface {
	AccessToken() string
	RefreshToken() string
	SetRefreshToken(token string)
}

// Manager restores and persists the refresh token of a single authorizer.
type Manager interface {
	// Bind attaches the owning client. It succeeds at most once.
	Bind(owner any) error

	// Owner returns the bound owner, or nil while unbound.
	Owner() any

	// PreRefresh is called before the authorizer refreshes. It may set the refresh token.
	PreRefresh(ctx context.Context, a Authorizer) error

	// PostRefresh is called after a successful refresh with the rotated tokens in place.
	PostRefresh(ctx context.Context, a Authorizer) error
}

// Binding holds the owner of a manager and enforces single assignment.
// Embed it to get Bind and Owner.
type Binding struct {
	owner any
}

// Owner returns the bound owner, or nil while unbound.
func (b *Binding) Owner() any {
	return b.owner
}

// Bind stores owner. It fails with ErrAlreadyBound if an owner is already set.
func (b *Binding) Bind(owner any) error {
	if owner == nil {
		return fmt.Errorf("%w: owner cannot be nil", ErrConfiguration)
	}
	if b.owner != nil {
		return ErrAlreadyBound
	}
	b.owner = owner
	return nil
}

// UnimplementedManager is a base for manager variants. Its hooks fail with ErrNotImplemented,
// so a variant that embeds it must override both.
type UnimplementedManager struct {
	Binding
}

// Compile-time check to ensure UnimplementedManager implements Manager
var _ Manager = (*UnimplementedManager)(nil)

// PreRefresh fails with ErrNotImplemented.
func (*UnimplementedManager) PreRefresh(context.Context, Authorizer) error {
	return fmt.Errorf("%w: PreRefresh must be overridden", ErrNotImplemented)
}

// PostRefresh fails with ErrNotImplemented.
func (*UnimplementedManager) PostRefresh(context.Context, Authorizer) error {
	return fmt.Errorf("%w: PostRefresh must be overridden", ErrNotImplemented)
}

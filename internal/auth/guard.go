// Package auth verifies that the caller of an operation is the principal it
// claims to act for.
package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated   = errors.New("no authenticated caller")
	ErrPrincipalMismatch = errors.New("caller does not match claimed principal")
)

// Guard confirms that the invoker of the current operation is claimed.
// Implementations must fail closed.
type Guard interface {
	Authenticate(ctx context.Context, claimed uint64) (uint64, error)
}

type principalKey struct{}

// WithPrincipal returns a context whose invoker is id. Only code that has
// already verified the caller (session middleware, admin tooling, tests)
// should call it.
func WithPrincipal(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, principalKey{}, id)
}

// PrincipalFrom returns the invoker recorded in ctx.
func PrincipalFrom(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(principalKey{}).(uint64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// ContextGuard trusts the invoker recorded by WithPrincipal.
type ContextGuard struct{}

func NewContextGuard() *ContextGuard {
	return &ContextGuard{}
}

func (ContextGuard) Authenticate(ctx context.Context, claimed uint64) (uint64, error) {
	invoker, ok := PrincipalFrom(ctx)
	if !ok {
		return 0, ErrUnauthenticated
	}
	if claimed == 0 || invoker != claimed {
		return 0, ErrPrincipalMismatch
	}
	return invoker, nil
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(ctx context.Context, claimed uint64) (uint64, error)

func (f GuardFunc) Authenticate(ctx context.Context, claimed uint64) (uint64, error) {
	return f(ctx, claimed)
}

// Package identity carries the authenticated caller through a request
// context.
//
// The session middleware resolves the token to a user and stores it:
//
//	id := identity.New(user).WithRemoteIP(identity.RemoteIP(r, cfg.IsTrustedProxy))
//	ctx = identity.Set(ctx, id)
//
// Handlers retrieve it and derive the authorization subject:
//
//	id, ok := identity.Get(ctx)
//	decision, err := engine.Authorize(ctx, id.Actor(), action, resource)
package identity

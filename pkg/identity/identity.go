package identity

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated caller of a request.
type Identity struct {
	User     *model.User
	RemoteIP net.IP
}

// New creates an Identity for an authenticated user.
func New(user *model.User) *Identity {
	return &Identity{User: user}
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// Actor returns the authorization subject for the identity.
func (i *Identity) Actor() authz.Actor {
	return authz.ActorFor(i.User)
}

// UserID returns the authenticated user's ID.
func (i *Identity) UserID() int64 {
	return i.User.ID
}

// ClientIP returns the remote address as a string, or "" when unknown.
func (i *Identity) ClientIP() string {
	if i.RemoteIP == nil {
		return ""
	}
	return i.RemoteIP.String()
}

// RemoteIP extracts the client address of r. X-Forwarded-For is honored,
// taking its first entry, only when trusted reports the peer as a proxy.
func RemoteIP(r *http.Request, trusted func(ip string) bool) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" && trusted != nil && trusted(host) {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip
		}
	}
	return net.ParseIP(host)
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok && id != nil && id.User != nil
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}

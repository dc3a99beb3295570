package websocket

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v4"

	"github.com/clickrace/server/game/presence"
)

// Authenticator resolves the identity behind an upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (presence.Identity, error)
}

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTAuthenticator validates an HMAC-signed token passed in the "token"
// query parameter. Browsers cannot set headers on WebSocket upgrades, so the
// query string is the usual channel.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates an authenticator with the given signing secret.
func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret}
}

type identityClaims struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	jwt.RegisteredClaims
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (presence.Identity, error) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		return presence.Identity{}, ErrMissingToken
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return presence.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return presence.Identity{}, ErrInvalidToken
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return presence.Identity{ID: claims.Subject, Name: name, Image: claims.Image}, nil
}

// HeaderAuthenticator trusts X-User-* headers. Development only; never put
// this behind a public listener.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (presence.Identity, error) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		id = r.URL.Query().Get("userId")
	}
	if id == "" {
		return presence.Identity{}, ErrMissingToken
	}
	name := r.Header.Get("X-User-Name")
	if name == "" {
		name = id
	}
	return presence.Identity{
		ID:    id,
		Name:  name,
		Image: r.Header.Get("X-User-Image"),
	}, nil
}

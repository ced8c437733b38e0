package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"

	"wayfare/apperror"
	"wayfare/models"
)

// Claims is the JWT payload. Subject carries the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// PrincipalResolver looks up the subject a credential refers to. Only active
// users resolve; a deleted or deactivated subject invalidates the token.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, id string) (*models.User, error)
}

// ResolverFunc adapts a function to PrincipalResolver.
type ResolverFunc func(ctx context.Context, id string) (*models.User, error)

func (f ResolverFunc) ResolvePrincipal(ctx context.Context, id string) (*models.User, error) {
	return f(ctx, id)
}

type ctxKey int

const principalKey ctxKey = 0

// PrincipalFrom returns the authenticated user attached by the guard.
func PrincipalFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(principalKey).(*models.User)
	return user, ok
}

// Guard runs the per-request authentication pipeline: extract the credential,
// verify it, resolve the subject, check credential freshness, then attach the
// principal to the request context.
type Guard struct {
	Secret     []byte
	TokenTTL   time.Duration
	CookieName string
	CookieTTL  time.Duration
	Secure     bool
	Resolver   PrincipalResolver
	Dev        bool
}

// SignToken issues a credential for the user.
func (g *Guard) SignToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.Secret)
}

// SetSessionCookie stores the credential in an httpOnly cookie; Secure is set
// outside dev deployments.
func (g *Guard) SetSessionCookie(w http.ResponseWriter, token string) {
	ttl := g.CookieTTL
	if ttl == 0 {
		ttl = g.TokenTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   g.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie overwrites the session cookie with a short-lived junk
// value; an httpOnly cookie cannot be deleted client side.
func (g *Guard) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.CookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   g.Secure,
	})
}

// extract finds the bearer credential in the Authorization header, falling
// back to the session cookie.
func (g *Guard) extract(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if cookie, err := r.Cookie(g.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// run walks steps 1-4 of the pipeline and returns the resolved principal.
func (g *Guard) run(r *http.Request) (*models.User, error) {
	token := g.extract(r)
	if token == "" {
		return nil, apperror.Unauthorized("You are not logged in. Please log in to get access")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return g.Secret, nil
	})
	if err != nil || !parsed.Valid {
		// same client-visible 401 for expired and malformed, but the
		// log keeps them apart
		if errors.Is(err, jwt.ErrTokenExpired) {
			slog.Info("rejected expired token", "path", r.URL.Path)
		} else {
			slog.Warn("rejected invalid token", "path", r.URL.Path, "err", err)
		}
		return nil, apperror.FromJWT(err)
	}

	user, err := g.Resolver.ResolvePrincipal(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.Unauthorized("The user belonging to this token no longer exists")
		}
		return nil, err
	}

	if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperror.Unauthorized("User recently changed password. Please log in again")
	}

	return user, nil
}

// Authenticate protects a route: any pipeline failure answers 401 and the
// handler never runs.
func (g *Guard) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, err := g.run(r)
		if err != nil {
			apperror.Respond(w, err, g.Dev)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, user)
		next(w, r.WithContext(ctx), ps)
	}
}

// OptionalAuth runs the same checks but never fails: view routes adapt their
// output to a principal when one is present and render anonymously otherwise.
func (g *Guard) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if user, err := g.run(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey, user))
		}
		next(w, r, ps)
	}
}

// RequireRoles is the authorization step; it consumes the principal attached
// by Authenticate and must always run after it.
func (g *Guard) RequireRoles(next httprouter.Handle, roles ...string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, ok := PrincipalFrom(r.Context())
		if !ok {
			apperror.Respond(w, apperror.Unauthorized("You are not logged in. Please log in to get access"), g.Dev)
			return
		}
		for _, role := range roles {
			if user.Role == role {
				next(w, r, ps)
				return
			}
		}
		apperror.Respond(w, apperror.Forbidden("You do not have permission to perform this action"), g.Dev)
	}
}

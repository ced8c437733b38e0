package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"

	"wayfare/models"
)

var testSecret = []byte("test-secret-do-not-reuse")

func testGuard(users map[string]*models.User) *Guard {
	return &Guard{
		Secret:     testSecret,
		TokenTTL:   time.Hour,
		CookieName: "jwt",
		Resolver: ResolverFunc(func(_ context.Context, id string) (*models.User, error) {
			user, ok := users[id]
			if !ok {
				return nil, mongo.ErrNoDocuments
			}
			return user, nil
		}),
	}
}

func okHandler(called *bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func signAt(t *testing.T, g *Guard, userID, role string, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.Secret)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestAuthenticateNoCredential(t *testing.T) {
	g := testGuard(nil)
	var called bool

	rec := httptest.NewRecorder()
	g.Authenticate(okHandler(&called))(rec, httptest.NewRequest(http.MethodGet, "/protected", nil), nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
	if called {
		t.Fatal("handler ran without a credential")
	}
}

func TestAuthenticateBadSignature(t *testing.T) {
	g := testGuard(map[string]*models.User{"u1": {ID: "u1", Role: models.RoleUser}})
	forged := &Guard{Secret: []byte("wrong"), TokenTTL: time.Hour}
	token := signAt(t, forged, "u1", models.RoleUser, time.Now(), time.Hour)

	var called bool
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	g.Authenticate(okHandler(&called))(rec, req, nil)

	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("code = %d, called = %v", rec.Code, called)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	g := testGuard(map[string]*models.User{"u1": {ID: "u1", Role: models.RoleUser}})
	token := signAt(t, g, "u1", models.RoleUser, time.Now().Add(-2*time.Hour), time.Hour)

	var called bool
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	g.Authenticate(okHandler(&called))(rec, req, nil)

	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("code = %d, called = %v", rec.Code, called)
	}
}

func TestAuthenticateDeletedSubject(t *testing.T) {
	g := testGuard(map[string]*models.User{})
	token := signAt(t, g, "ghost", models.RoleUser, time.Now(), time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	var called bool
	g.Authenticate(okHandler(&called))(rec, req, nil)

	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("code = %d, called = %v", rec.Code, called)
	}
}

func TestAuthenticateStaleTokenAfterPasswordChange(t *testing.T) {
	issued := time.Now().Add(-10 * time.Minute)
	user := &models.User{
		ID:                "u1",
		Role:              models.RoleUser,
		PasswordChangedAt: time.Now().Add(-5 * time.Minute),
	}
	g := testGuard(map[string]*models.User{"u1": user})
	token := signAt(t, g, "u1", models.RoleUser, issued, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	var called bool
	g.Authenticate(okHandler(&called))(rec, req, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401 for stale token", rec.Code)
	}
	if called {
		t.Fatal("handler ran with a token issued before the password change")
	}
}

func TestAuthenticateAttachesPrincipal(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Anna", Role: models.RoleGuide}
	g := testGuard(map[string]*models.User{"u1": user})
	token, err := g.SignToken(user)
	if err != nil {
		t.Fatal(err)
	}

	var principal *models.User
	handler := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		principal, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	g.Authenticate(handler)(rec, req, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if principal == nil || principal.ID != "u1" {
		t.Fatalf("principal = %+v", principal)
	}
}

func TestAuthenticateCookieFallback(t *testing.T) {
	user := &models.User{ID: "u1", Role: models.RoleUser}
	g := testGuard(map[string]*models.User{"u1": user})
	token, _ := g.SignToken(user)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})

	rec := httptest.NewRecorder()
	var called bool
	g.Authenticate(okHandler(&called))(rec, req, nil)

	if rec.Code != http.StatusOK || !called {
		t.Fatalf("code = %d, called = %v", rec.Code, called)
	}
}

func TestOptionalAuthNeverFails(t *testing.T) {
	g := testGuard(nil)

	var sawPrincipal bool
	handler := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_, sawPrincipal = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-even-a-token")

	rec := httptest.NewRecorder()
	g.OptionalAuth(handler)(rec, req, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200 despite bad token", rec.Code)
	}
	if sawPrincipal {
		t.Fatal("principal attached from an invalid token")
	}
}

func TestRequireRoles(t *testing.T) {
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}
	regular := &models.User{ID: "u1", Role: models.RoleUser}
	g := testGuard(map[string]*models.User{"a1": admin, "u1": regular})

	protected := g.Authenticate(g.RequireRoles(okHandler(new(bool)), models.RoleAdmin, models.RoleLeadGuide))

	cases := []struct {
		name string
		user *models.User
		want int
	}{
		{"admin allowed", admin, http.StatusOK},
		{"regular forbidden", regular, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, _ := g.SignToken(tc.user)
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			rec := httptest.NewRecorder()
			protected(rec, req, nil)

			if rec.Code != tc.want {
				t.Fatalf("code = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestRequireRolesWithoutGuardIs401(t *testing.T) {
	g := testGuard(nil)
	rec := httptest.NewRecorder()
	g.RequireRoles(okHandler(new(bool)), models.RoleAdmin)(rec, httptest.NewRequest(http.MethodGet, "/admin", nil), nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401 when no principal attached", rec.Code)
	}
}

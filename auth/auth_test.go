package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"wayfare/middleware"
	"wayfare/models"
)

// fakeUsers serves canned accounts by email, the only lookup Login performs.
type fakeUsers struct {
	byEmail map[string]*models.User
}

func (f *fakeUsers) FindOne(_ context.Context, filter bson.M) (*models.User, error) {
	if email, ok := filter["email"].(string); ok {
		if u, found := f.byEmail[email]; found {
			clone := *u
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUsers) FindByID(context.Context, string) (*models.User, error) {
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUsers) Collection() *mongo.Collection { return nil }

func loginHandlers(t *testing.T) *Handlers {
	t.Helper()
	user := &models.User{
		ID:       "uloginfixture1",
		Name:     "Laura Wilson",
		Email:    "laura@example.com",
		Password: "pass1234",
		Role:     models.RoleUser,
	}
	if err := user.HashPassword(); err != nil {
		t.Fatal(err)
	}
	return &Handlers{
		Users: &fakeUsers{byEmail: map[string]*models.User{user.Email: user}},
		Guard: &middleware.Guard{
			Secret:     []byte("test-secret"),
			TokenTTL:   time.Hour,
			CookieName: "jwt",
		},
	}
}

func postLogin(h *Handlers, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req, nil)
	return rec
}

func TestLoginIssuesSession(t *testing.T) {
	h := loginHandlers(t)
	rec := postLogin(h, `{"email":"laura@example.com","password":"pass1234"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "success" || body.Token == "" {
		t.Errorf("body = %+v, want success with a token", body)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "jwt" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body.Token {
		t.Error("session cookie missing or does not carry the token")
	}
}

// An attacker probing for accounts must get the same answer whether the
// email is unknown or the password is wrong.
func TestLoginRejectsUnknownAndWrongPasswordAlike(t *testing.T) {
	h := loginHandlers(t)

	unknown := postLogin(h, `{"email":"nobody@example.com","password":"pass1234"}`)
	wrong := postLogin(h, `{"email":"laura@example.com","password":"letmein99"}`)

	for name, rec := range map[string]*httptest.ResponseRecorder{"unknown email": unknown, "wrong password": wrong} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", name, rec.Code)
		}
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("rejection bodies differ:\n%s\n%s", unknown.Body.String(), wrong.Body.String())
	}

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(unknown.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want fail", body.Status)
	}
	if body.Message != "Incorrect email or password" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestLoginMissingFieldsIs400(t *testing.T) {
	h := loginHandlers(t)
	rec := postLogin(h, `{"email":"laura@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"wayfare/apperror"
	"wayfare/email"
	"wayfare/middleware"
	"wayfare/models"
	"wayfare/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const opTimeout = 5 * time.Second

// UserStore is the slice of the user store the credential flow touches.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindOne(ctx context.Context, filter bson.M) (*models.User, error)
	Collection() *mongo.Collection
}

// Handlers owns the credential lifecycle: signup, login, logout and the
// password reset flow. Session issuance goes through the shared Guard so
// cookies and tokens always carry the same settings.
type Handlers struct {
	Users   UserStore
	Guard   *middleware.Guard
	Mailer  *email.Mailer
	BaseURL string
	Dev     bool
}

func (h *Handlers) issueSession(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.Guard.SignToken(user)
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	h.Guard.SetSessionCookie(w, token)

	user.Password = ""
	utils.RespondWithJSON(w, status, utils.M{
		"status": "success",
		"token":  token,
		"data":   utils.M{"user": user},
	})
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	var body struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperror.Respond(w, apperror.BadRequest("Invalid request body"), h.Dev)
		return
	}

	// Whatever else the client sent, a signup never grants elevated roles.
	user := models.User{
		Name:            body.Name,
		Email:           body.Email,
		Password:        body.Password,
		PasswordConfirm: body.PasswordConfirm,
		Role:            models.RoleUser,
	}

	user.EnsureID()
	user.Normalize()
	if err := user.Validate(); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	if err := user.HashPassword(); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	if _, err := h.Users.Collection().InsertOne(ctx, user); err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "user"), h.Dev)
		return
	}

	if err := h.Mailer.SendWelcome(&user, h.BaseURL+"/account"); err != nil {
		slog.Warn("welcome mail failed", "user", user.ID, "err", err)
	}

	h.issueSession(w, http.StatusCreated, &user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		apperror.Respond(w, apperror.BadRequest("Invalid request body"), h.Dev)
		return
	}
	if creds.Email == "" || creds.Password == "" {
		apperror.Respond(w, apperror.BadRequest("Please provide email and password"), h.Dev)
		return
	}

	// Same response whether the account is missing or the password is wrong.
	user, err := h.Users.FindOne(ctx, bson.M{"email": creds.Email})
	if err != nil || !user.CorrectPassword(creds.Password) {
		if err != nil && err != mongo.ErrNoDocuments {
			slog.Error("login lookup failed", "err", err)
		}
		apperror.Respond(w, apperror.Unauthorized("Incorrect email or password"), h.Dev)
		return
	}

	h.issueSession(w, http.StatusOK, user)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.Guard.ClearSessionCookie(w)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "success"})
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		apperror.Respond(w, apperror.BadRequest("Please provide an email address"), h.Dev)
		return
	}

	user, err := h.Users.FindOne(ctx, bson.M{"email": body.Email})
	if err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "user with that email address"), h.Dev)
		return
	}

	token, err := user.CreatePasswordResetToken()
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	_, err = h.Users.Collection().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"passwordresettoken":   user.PasswordResetToken,
		"passwordresetexpires": user.PasswordResetExpires,
	}})
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	resetURL := h.BaseURL + "/api/v1/users/reset-password/" + token
	if err := h.Mailer.SendPasswordReset(user, resetURL); err != nil {
		// Undo the token so a later attempt starts clean.
		_, _ = h.Users.Collection().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$unset": bson.M{
			"passwordresettoken":   "",
			"passwordresetexpires": "",
		}})
		slog.Error("reset mail failed", "user", user.ID, "err", err)
		apperror.Respond(w, apperror.Internal("There was an error sending the email. Try again later!"), h.Dev)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"status":  "success",
		"message": "Token sent to email!",
	})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	hashed := models.HashResetToken(ps.ByName("token"))
	user, err := h.Users.FindOne(ctx, bson.M{
		"passwordresettoken":   hashed,
		"passwordresetexpires": bson.M{"$gt": time.Now()},
	})
	if err != nil {
		apperror.Respond(w, apperror.BadRequest("Token is invalid or has expired"), h.Dev)
		return
	}

	var body struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperror.Respond(w, apperror.BadRequest("Invalid request body"), h.Dev)
		return
	}

	if err := h.setPassword(ctx, user, body.Password, body.PasswordConfirm); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	h.issueSession(w, http.StatusOK, user)
}

// UpdatePassword changes the password of the signed-in user. Unlike the reset
// flow it demands the current password first.
func (h *Handlers) UpdatePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apperror.Respond(w, apperror.Unauthorized("You are not logged in! Please log in to get access."), h.Dev)
		return
	}
	user, err := h.Users.FindByID(ctx, principal.ID)
	if err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "user"), h.Dev)
		return
	}

	var body struct {
		PasswordCurrent string `json:"passwordCurrent"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperror.Respond(w, apperror.BadRequest("Invalid request body"), h.Dev)
		return
	}
	if !user.CorrectPassword(body.PasswordCurrent) {
		apperror.Respond(w, apperror.Unauthorized("Your current password is wrong."), h.Dev)
		return
	}

	if err := h.setPassword(ctx, user, body.Password, body.PasswordConfirm); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	h.issueSession(w, http.StatusOK, user)
}

// setPassword validates and stores a new password, stamps passwordchangedat
// slightly in the past so the session token signed right after still counts
// as issued later, and clears any pending reset token.
func (h *Handlers) setPassword(ctx context.Context, user *models.User, password, confirm string) error {
	user.Password = password
	user.PasswordConfirm = confirm
	if err := user.Validate(); err != nil {
		return err
	}
	if err := user.HashPassword(); err != nil {
		return err
	}
	user.PasswordChangedAt = time.Now().Add(-time.Second)
	user.PasswordResetToken = ""
	user.PasswordResetExpires = time.Time{}

	_, err := h.Users.Collection().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set": bson.M{
			"password":          user.Password,
			"passwordchangedat": user.PasswordChangedAt,
		},
		"$unset": bson.M{
			"passwordresettoken":   "",
			"passwordresetexpires": "",
		},
	})
	return err
}

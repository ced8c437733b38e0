package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"wayfare/utils"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

const passwordResetTTL = 10 * time.Minute

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type User struct {
	ID                   string    `bson:"_id,omitempty" json:"id"`
	Name                 string    `bson:"name" json:"name"`
	Email                string    `bson:"email" json:"email"`
	Photo                string    `bson:"photo,omitempty" json:"photo,omitempty"`
	Role                 string    `bson:"role" json:"role"`
	Password             string    `bson:"password" json:"-"`
	PasswordConfirm      string    `bson:"-" json:"passwordConfirm,omitempty"`
	PasswordChangedAt    time.Time `bson:"passwordchangedat,omitempty" json:"-"`
	PasswordResetToken   string    `bson:"passwordresettoken,omitempty" json:"-"`
	PasswordResetExpires time.Time `bson:"passwordresetexpires,omitempty" json:"-"`
	Active               bool      `bson:"active" json:"-"`
	CreatedAt            time.Time `bson:"createdat" json:"createdAt"`
	Rev                  int       `bson:"__v" json:"-"`
}

func (u *User) EnsureID() {
	if u.ID == "" {
		u.ID = "u" + utils.GenerateRandomString(12)
	}
}

// Normalize is the pre-save step: lowercases the email, defaults role and
// active flag, stamps creation time.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Photo == "" {
		u.Photo = "default.jpg"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.Active = true
	}
}

// Validate checks the signup fields. Password rules apply only while the
// plaintext pair is still present; once hashed, PasswordConfirm is gone.
func (u *User) Validate() error {
	var problems []string
	if strings.TrimSpace(u.Name) == "" {
		problems = append(problems, "a user must have a name")
	}
	if !emailPattern.MatchString(strings.ToLower(strings.TrimSpace(u.Email))) {
		problems = append(problems, "provide a valid email address")
	}
	switch u.Role {
	case "", RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
	default:
		problems = append(problems, "role must be one of: user, guide, lead-guide, admin")
	}
	if u.PasswordConfirm != "" || len(u.Password) < 60 {
		if len(u.Password) < 8 {
			problems = append(problems, "a password must have at least 8 characters")
		}
		if u.Password != u.PasswordConfirm {
			problems = append(problems, "password and passwordConfirm must match")
		}
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}

// HashPassword bcrypt-hashes the plaintext password and discards the
// confirmation field so it is never persisted.
func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), 12)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	u.PasswordConfirm = ""
	return nil
}

// CorrectPassword compares a login attempt against the stored hash.
func (u *User) CorrectPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

// ChangedPasswordAfter reports whether the password changed after the given
// token-issue time. A token issued before the change must be rejected.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	// truncate to seconds: JWT iat has second precision and the change
	// timestamp is written just before the token check happens
	return u.PasswordChangedAt.Truncate(time.Second).After(issuedAt.Truncate(time.Second))
}

// CreatePasswordResetToken returns the plaintext token for the reset email and
// stores only its sha256 digest with a short expiry.
func (u *User) CreatePasswordResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	u.PasswordResetToken = HashResetToken(token)
	u.PasswordResetExpires = time.Now().Add(passwordResetTTL)
	return token, nil
}

// HashResetToken is the at-rest form of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

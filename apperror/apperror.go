package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// Error is an operational error: an anticipated, user-facing failure that
// carries a status code and a message safe to surface verbatim. Anything that
// is not an *Error is treated as unknown and never leaks to the caller.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func BadRequest(message string) *Error  { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error   { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error    { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error    { return New(http.StatusConflict, message) }
func Internal(message string) *Error    { return New(http.StatusInternalServerError, message) }

// IsNotFound reports whether err resolves to a 404 condition.
func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == http.StatusNotFound
}

// FromMongo maps known database fault shapes onto operational errors.
// Unrecognized errors pass through unchanged.
func FromMongo(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound(fmt.Sprintf("No %s found with that ID", resource))
	}
	if mongo.IsDuplicateKeyError(err) {
		return &Error{
			Code:    http.StatusConflict,
			Message: "Duplicate field value. Please use another value",
			Err:     err,
		}
	}
	return err
}

// FromJWT maps credential faults onto 401s. Expired and malformed tokens look
// the same to the client but keep distinct underlying errors for logging.
func FromJWT(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return &Error{Code: http.StatusUnauthorized, Message: "Expired token. Please log in again", Err: err}
	}
	return &Error{Code: http.StatusUnauthorized, Message: "Invalid token. Please log in again", Err: err}
}

// Respond writes err as the API envelope. Operational errors surface their
// message; unknown errors are logged and masked unless dev is set.
func Respond(w http.ResponseWriter, err error, dev bool) {
	var ae *Error
	if !errors.As(err, &ae) {
		slog.Error("unhandled error", "err", err)
		body := map[string]any{"status": "error", "message": "Something went wrong"}
		if dev {
			body["message"] = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	if ae.Err != nil {
		slog.Warn("request failed", "code", ae.Code, "err", ae.Err)
	}

	status := "fail"
	if ae.Code >= 500 {
		status = "error"
	}
	writeJSON(w, ae.Code, map[string]any{"status": status, "message": ae.Message})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "err", err)
	}
}

// ValidationError joins field-level messages into one 400.
func ValidationError(problems ...string) *Error {
	return BadRequest("Invalid input data: " + strings.Join(problems, ". "))
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Error kinds. Handlers map these to HTTP statuses through Status.
var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a product, invoice, party or bill is absent.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration is returned when no tenant can be resolved for a request.
	ErrConfiguration = errors.New("configuration error")

	// ErrConflict is returned when a unique key (product code, invoice number,
	// account email) is already taken.
	ErrConflict = errors.New("conflict")
)

// Error wraps a kind with the operation that failed and a message safe to
// show to the caller.
type Error struct {
	// Op is the operation that failed (e.g. "invoice.Create").
	Op string

	// Kind is one of the sentinel errors above, nil for internal failures.
	Kind error

	// Msg is the user-facing message.
	Msg string

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Validation returns an ErrValidation error with msg shown to the caller.
func Validation(op, msg string) error {
	return &Error{Op: op, Kind: ErrValidation, Msg: msg}
}

// NotFound returns an ErrNotFound error for the named entity.
func NotFound(op, what string) error {
	return &Error{Op: op, Kind: ErrNotFound, Msg: what + " not found"}
}

// Configuration returns an ErrConfiguration error.
func Configuration(op, msg string) error {
	return &Error{Op: op, Kind: ErrConfiguration, Msg: msg}
}

// Conflict returns an ErrConflict error.
func Conflict(op, msg string) error {
	return &Error{Op: op, Kind: ErrConflict, Msg: msg}
}

// Wrap attaches op to err. gorm's not-found and duplicate-key errors are
// translated into their kinds so handlers need not know about gorm.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Op: op, Kind: ErrNotFound, Msg: "record not found", Err: err}
	case IsDuplicate(err):
		return &Error{Op: op, Kind: ErrConflict, Msg: "already exists", Err: err}
	}
	return &Error{Op: op, Err: err}
}

// IsDuplicate reports whether err is a unique-key violation. Drivers that do
// not translate their errors are matched on the message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message for err, or fallback for
// internal failures.
func Message(err error, fallback string) string {
	if Status(err) == http.StatusInternalServerError {
		return fallback
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	return err.Error()
}

// Respond writes err as {"error": msg}. Internal failures are logged and
// answered with fallback so storage details never reach the client.
func Respond(c *gin.Context, err error, fallback string) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("tenant", c.GetString("tenant_key")).
			Str("path", c.FullPath()).
			Msg(fallback)
	}
	c.JSON(status, gin.H{"error": Message(err, fallback)})
}

package scriptstash

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error represents a terminal request failure with a fixed HTTP status and
// a stable machine-readable code. The set of errors below is closed: every
// failure the server can produce maps to exactly one of them.
type Error struct {
	Status int
	Code   string
}

var (
	ErrUnauthorized = &Error{http.StatusUnauthorized, "E_UNAUTHORIZED"}       // secret key is missing from the request
	ErrFileMissing  = &Error{http.StatusBadRequest, "E_FILE_MISSING"}         // multipart field 'file' required
	ErrTooLarge     = &Error{http.StatusRequestEntityTooLarge, "E_TOO_LARGE"} // file exceeds the configured byte limit
	ErrInvalidJSON  = &Error{http.StatusBadRequest, "E_INVALID_JSON"}         // file is not valid JSON
	ErrNoActions    = &Error{http.StatusBadRequest, "E_NO_ACTIONS"}           // missing actions[] array
	ErrEmptyActions = &Error{http.StatusBadRequest, "E_EMPTY_ACTIONS"}        // actions[] is empty
	ErrBadAction    = &Error{http.StatusBadRequest, "E_BAD_ACTION"}           // invalid at/pos values
	ErrBadHash      = &Error{http.StatusBadRequest, "E_BAD_HASH"}             // hash must be 64-char lowercase hex
	ErrNotFound     = &Error{http.StatusNotFound, "E_NOT_FOUND"}              // script expired or never existed
	ErrInternal     = &Error{http.StatusInternalServerError, "E_INTERNAL"}    // backend failure, cause is logged server-side
)

func (e *Error) Error() string {
	return e.Code
}

func (e *Error) String() string {
	return fmt.Sprintf("status: %d, code: %s", e.Status, e.Code)
}

func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}

	err, ok := target.(*Error)
	if !ok {
		return false
	}
	return err != nil && e.Status == err.Status && e.Code == err.Code
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

// Write the error to the http response as the standard JSON envelope
// {"success":false,"error":{"code":...}}.
func (e *Error) Write(w http.ResponseWriter) error {
	var body errorBody
	body.Error.Code = e.Code

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	return json.NewEncoder(w).Encode(body)
}

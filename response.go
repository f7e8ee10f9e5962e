package scriptstash

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// UploadResponse is the body of a successful POST /scripts. The size and
// expiry always describe the authoritative stored encoding: on a duplicate
// upload they come from the existing record, not from the new submission.
type UploadResponse struct {
	Success bool   `json:"success"`
	Hash    string `json:"hash"`
	Size    int    `json:"size"`

	// ExpiresIn is the remaining time-to-live in seconds. Some backends
	// report a negative number for keys without an expiry; the value is
	// passed through untouched and clients must tolerate it.
	ExpiresIn int64 `json:"expires_in"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeScript writes the stored encoding as a CSV attachment named after
// its hash, without any transformation of the stored bytes.
func writeScript(w http.ResponseWriter, hash string, data []byte) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+hash+`.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))

	written, err := w.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write script to response: %w", err)
	}
	if written != len(data) {
		return fmt.Errorf("written size mismatch: expected %d, wrote %d", len(data), written)
	}
	return nil
}

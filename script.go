package scriptstash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// HashSize is the length in hex characters of a script hash.
const HashSize = sha256.Size * 2

// Action is a single record of an uploaded script: a timestamp offset and a
// position value. Actions only exist as parsed input; the store holds the
// canonical encoding, never the structured form.
type Action struct {
	At  float64
	Pos float64
}

// EncodeActions renders actions as CSV, one "at,pos" line per action in
// input order. Every line, including the last, ends with a single linefeed:
// the device firmware includes the trailing LF when it recomputes the hash,
// so dropping it produces a different hash and the device rejects the
// script. The encoding is byte-deterministic, which makes it safe to use as
// the hash input and the stored payload.
func EncodeActions(actions []Action) []byte {
	var buf bytes.Buffer
	for _, a := range actions {
		buf.WriteString(formatNumber(a.At))
		buf.WriteByte(',')
		buf.WriteString(formatNumber(a.Pos))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// formatNumber renders a JSON number as the shortest plain decimal that
// round-trips: integers carry no decimal point and no exponent form is ever
// used, so the same value always encodes to the same bytes.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DeriveHash returns the lowercase hex SHA-256 digest of data. The result
// is always [HashSize] characters and is a pure function of the input; it
// is the primary key into the store and the identifier handed to clients.
func DeriveHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateHash checks that s has the exact shape of a script hash:
// HashSize lowercase hex characters. It never touches the store.
func ValidateHash(s string) *Error {
	if len(s) != HashSize {
		return ErrBadHash
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ErrBadHash
		}
	}
	return nil
}

// ParseDocument validates an uploaded script body and returns its actions
// in input order. Checks are applied in a fixed order and the first
// violation wins: the body must be valid JSON, the root must be an object
// with an "actions" property, the property must be a non-empty array, and
// every element must carry numeric "at" and "pos" fields.
func ParseDocument(data []byte) ([]Action, *Error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, ErrInvalidJSON
	}

	object, ok := root.(map[string]any)
	if !ok {
		return nil, ErrNoActions
	}

	property, ok := object["actions"]
	if !ok {
		return nil, ErrNoActions
	}

	list, ok := property.([]any)
	if !ok || len(list) == 0 {
		return nil, ErrEmptyActions
	}

	actions := make([]Action, len(list))
	for i, element := range list {
		fields, ok := element.(map[string]any)
		if !ok {
			return nil, ErrBadAction
		}

		at, ok := fields["at"].(float64)
		if !ok {
			return nil, ErrBadAction
		}

		pos, ok := fields["pos"].(float64)
		if !ok {
			return nil, ErrBadAction
		}

		actions[i] = Action{At: at, Pos: pos}
	}
	return actions, nil
}

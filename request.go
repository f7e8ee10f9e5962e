package scriptstash

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
)

// multipartSlack is the extra room allowed on top of the upload byte limit
// to account for multipart boundaries and part headers when capping the
// whole request body.
const multipartSlack = 16 << 10

// parseUpload validates a POST /scripts request and returns the actions of
// the uploaded script. Checks run in a strict order and the first failure
// wins: shared secret, presence of the multipart "file" field, size limit,
// then the document checks of [ParseDocument].
func (s *Server) parseUpload(r *http.Request) ([]Action, *Error) {
	got := r.Header.Get("X-API-SECRET")
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.settings.secret)) != 1 {
		return nil, ErrUnauthorized
	}

	r.Body = http.MaxBytesReader(nil, r.Body, s.settings.maxUploadBytes+multipartSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrTooLarge
		}
		return nil, ErrFileMissing
	}
	defer file.Close()

	// The declared part size is checked before reading the contents, so an
	// oversized upload is rejected without parsing it.
	if header.Size > s.settings.maxUploadBytes {
		return nil, ErrTooLarge
	}

	data, perr := readNoMore(file, s.settings.maxUploadBytes)
	if perr != nil {
		return nil, perr
	}
	return ParseDocument(data)
}

// parseFetch validates a GET /scripts/{hash} request and returns the hash.
func parseFetch(r *http.Request) (string, *Error) {
	hash := strings.TrimPrefix(r.URL.Path, "/scripts/")
	if err := ValidateHash(hash); err != nil {
		return "", err
	}
	return hash, nil
}

// readNoMore reads at most limit bytes from the reader. The declared part
// size is not trusted: a part that turns out larger than limit fails with
// the same too-large error as one that declares it.
func readNoMore(r io.Reader, limit int64) ([]byte, *Error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, ErrInternal
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

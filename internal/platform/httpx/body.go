package httpx

import (
	"errors"
	"io"
	"net/http"
)

var (
	// ErrEmptyBody is returned by ReadLimitedBody for an empty payload.
	ErrEmptyBody = errors.New("request body is empty")
	// ErrBodyTooLarge is returned when the payload exceeds the limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// ReadLimitedBody reads at most limit bytes from the request body.
func ReadLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, ErrEmptyBody
	}
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}
	return data, nil
}

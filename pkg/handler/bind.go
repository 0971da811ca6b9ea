package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// JSONBody decodes a JSON request body into the request value.
// Unknown fields are rejected; an empty body is an error.
func JSONBody() Bind {
	return func(r *http.Request, v any) error {
		if r.Body == nil || r.Body == http.NoBody {
			return ErrEmptyBody
		}
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return ErrEmptyBody
			}
			if errors.Is(err, io.ErrUnexpectedEOF) && r.ContentLength > maxBodyBytes {
				return ErrBodyTooBig
			}
			return errors.Join(ErrInvalidJSON, err)
		}
		return nil
	}
}

// OptionalJSONBody is JSONBody that accepts an empty body.
func OptionalJSONBody() Bind {
	bind := JSONBody()
	return func(r *http.Request, v any) error {
		if err := bind(r, v); err != nil && !errors.Is(err, ErrEmptyBody) {
			return err
		}
		return nil
	}
}

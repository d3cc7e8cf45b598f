package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const msgInvalidRequest = "Invalid request data"

// ErrorBody is the JSON document written for every failed request.
type ErrorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

type codedError struct {
	code    int
	message string
	fields  []FieldError
	err     error
}

func (e *codedError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *codedError) Unwrap() error {
	return e.err
}

// CodedError pairs a client-facing message with the status code to send.
// err is logged but never written to the response.
func CodedError(code int, message string, err error) error {
	return &codedError{code: code, message: message, err: err}
}

func invalidRequest(fields []FieldError, err error) error {
	return &codedError{code: http.StatusBadRequest, message: msgInvalidRequest, fields: fields, err: err}
}

// ParseRequest decodes a JSON body into T and validates it with v.
func ParseRequest[T any](r *http.Request, v *validator.Validate) (T, error) {
	var data T
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return data, invalidRequest([]FieldError{{
			Field:   "body",
			Rule:    "json",
			Message: "request body must be a JSON object",
		}}, err)
	}
	if err := v.Struct(data); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return data, invalidRequest(fieldErrors(verrs), err)
		}
		return data, invalidRequest(nil, err)
	}
	return data, nil
}

func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())
		res, err := handler(r)
		if err != nil {
			var cerr *codedError
			if !errors.As(err, &cerr) {
				cerr = &codedError{code: http.StatusInternalServerError, message: "Internal server error", err: err}
			}
			if cerr.code >= http.StatusInternalServerError {
				log.Error().Err(err).Msg("request failed")
			} else {
				log.Debug().Err(err).Msg("request rejected")
			}
			WriteJSON(w, cerr.code, ErrorBody{Message: cerr.message, Errors: cerr.fields})
			return
		}

		if res == nil {
			res = struct{}{}
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func WriteJSON(w http.ResponseWriter, code int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("error serializing response body: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}

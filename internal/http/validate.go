package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// ValidationError is a request rejected before it reached the cart or the
// catalog.
type ValidationError struct {
	Code    string
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func (rs responder) respondValidation(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		rs.respondError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	resp := ErrorResponse{Error: ve.Message, Code: ve.Code}
	if len(ve.Fields) > 0 {
		resp.Details = ve.Fields
	}
	rs.respondJSON(w, r, http.StatusBadRequest, resp)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dest any) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	defer func() {
		io.Copy(io.Discard, r.Body)
	}()

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return &ValidationError{Code: "invalid_request", Message: "invalid JSON body"}
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *ValidationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &ValidationError{Code: "validation_error", Message: "validation failed"}
	}
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = validationMessage(fe)
	}
	return &ValidationError{Code: "validation_error", Message: "validation failed", Fields: fields}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

// productIDParam reads a positive integer id from the route.
func productIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Code: "invalid_product_id", Message: name + " must be a positive integer"}
	}
	return id, nil
}

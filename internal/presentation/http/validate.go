package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 16

var (
	errInvalidBody = errors.New("http: invalid request body")
	validate       = newValidator()
)

// validationError carries field-level messages keyed by json name.
type validationError struct {
	details map[string]string
}

func (e *validationError) Error() string { return "http: validation failed" }

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := validate.Struct(dst); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			details := make(map[string]string, len(errs))
			for _, fe := range errs {
				details[fe.Field()] = validationMessage(fe)
			}
			return &validationError{details: details}
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}

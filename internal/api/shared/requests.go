package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

var (
	// ErrMalformedBody is returned when the body is not valid JSON.
	ErrMalformedBody = errors.New("malformed request body")

	// ErrUnsupportedMediaType is returned for bodies that are not JSON.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

var alphaDash = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("alpha_dash", func(fl validator.FieldLevel) bool {
		return alphaDash.MatchString(fl.Field().String())
	})
	return v
}

// DecodeJSON decodes the request body into v and returns the set of
// top-level keys that were present. An empty body decodes as {}. A
// Content-Type other than JSON yields ErrUnsupportedMediaType; a body that
// is not a JSON object yields ErrMalformedBody.
func DecodeJSON(r *http.Request, v any) (map[string]bool, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json")) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, ct)
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}

	present := make(map[string]bool, len(raw))
	for key := range raw {
		present[key] = true
	}
	return present, nil
}

// Rules names the fields of one request type and overrides the messages of
// specific rules. Message keys are "field.tag", e.g. "title.required".
type Rules struct {
	Attributes map[string]string
	Messages   map[string]string
}

// Attribute returns the human-readable name of field.
func (r Rules) Attribute(field string) string {
	if name, ok := r.Attributes[field]; ok {
		return name
	}
	return strings.ReplaceAll(field, "_", " ")
}

// Message returns the message for a failed rule on field.
func (r Rules) Message(field, tag, param string) string {
	if msg, ok := r.Messages[field+"."+tag]; ok {
		return msg
	}

	name := r.Attribute(field)
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", name, param)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", name, param)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", name)
	case "alpha_dash":
		return fmt.Sprintf("The %s may only contain letters, numbers, dashes and underscores.", name)
	case "datetime":
		return fmt.Sprintf("The %s does not match the format %s.", name, param)
	case "boolean":
		return fmt.Sprintf("The %s field must be true or false.", name)
	case "integer", "number":
		return fmt.Sprintf("The %s must be an integer.", name)
	default:
		return fmt.Sprintf("The %s is invalid.", name)
	}
}

// Add records the message for a failed rule on field into errs.
func (r Rules) Add(errs domain.ValidationErrors, field, tag string) {
	errs.Add(field, r.Message(field, tag, ""))
}

// ValidateRequest runs the struct's validate tags and returns the failures
// keyed by JSON field name. It returns an empty, non-nil map when v is valid.
func ValidateRequest(v any, rules Rules) domain.ValidationErrors {
	errs := domain.ValidationErrors{}

	err := validate.Struct(v)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("_", "The request could not be validated.")
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), rules.Message(fe.Field(), fe.Tag(), fe.Param()))
	}
	return errs
}

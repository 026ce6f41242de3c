package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	registerValidatorsOnce sync.Once
	registerValidatorsErr  error

	errUnexpectedValidatorEngine = errors.New("gin binding validator is not a go-playground validator")
)

// fieldMessages maps "<json field>.<validation tag>" to the client-facing message.
var fieldMessages = map[string]string{
	"title.notblank":     "Title cannot be blank",
	"title.max":          "Title must be at most 255 characters",
	"composer.max":       "Composer must be at most 255 characters",
	"tabsImageUrl.max":   "Tabs image URL must be at most 2048 characters",
	"scoreImageUrl.max":  "Score image URL must be at most 2048 characters",
	"dateTime.required":  "Date and time cannot be null",
	"location.max":       "Location must be at most 255 characters",
	"songId.required":    "Song ID cannot be null",
	"songOrder.required": "Song order cannot be null",
	"songOrder.gt":       "Song order must be a positive number",
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// registerValidators configures gin's validator engine once per process and reports
// the outcome to every caller.
func registerValidators() error {
	registerValidatorsOnce.Do(func() {
		registerValidatorsErr = configureValidator(binding.Validator.Engine())
	})
	return registerValidatorsErr
}

func configureValidator(engine any) error {
	validate, ok := engine.(*validator.Validate)
	if !ok {
		return fmt.Errorf("%w: %T", errUnexpectedValidatorEngine, engine)
	}
	validate.RegisterTagNameFunc(jsonFieldName)
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return fmt.Errorf("register notblank validator: %w", err)
	}
	return nil
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// bindJSON decodes and validates the request body, returning field errors on failure.
func bindJSON(c *gin.Context, target any) []fieldError {
	err := c.ShouldBindJSON(target)
	if err == nil {
		return nil
	}
	return describeBindingError(err)
}

func describeBindingError(err error) []fieldError {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]fieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, fieldError{
				Field:   fieldPath(fe.Namespace()),
				Message: validationMessage(fe),
			})
		}
		return fields
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return []fieldError{{Field: field, Message: fmt.Sprintf("Value must be of type %s", typeErr.Type.String())}}
	}

	if errors.Is(err, io.EOF) {
		return []fieldError{{Field: "body", Message: "Request body is required"}}
	}
	return []fieldError{{Field: "body", Message: "Request body must be a valid JSON document"}}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, found := strings.Cut(namespace, "."); found {
		return rest
	}
	return namespace
}

func validationMessage(fe validator.FieldError) string {
	if message, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return message
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

package recorder

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/soundset/datacap/internal/dataset"
)

// ErrInvalidParameter indicates a rejected duration, prefix or index.
var ErrInvalidParameter = errors.New("invalid recording parameter")

// Params configure one recording session.
type Params struct {
	Category        dataset.Category `json:"category" validate:"required,oneof=OK NG"`
	DurationSeconds int              `json:"duration_seconds" validate:"gte=1,lte=300"`
	Prefix          string           `json:"prefix" validate:"required,filesafe"`
	// StartIndex 0 means unset; the indexer treats anything below 1 as 1
	// since take indices are 1-based.
	StartIndex int `json:"start_index" validate:"gte=0"`
}

// validate is the shared validator instance for session parameters.
var validate *validator.Validate

var filesafePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages instead of struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("filesafe", func(fl validator.FieldLevel) bool {
		return filesafePattern.MatchString(fl.Field().String())
	})
}

// ValidateParams checks p and returns ErrInvalidParameter with a
// human-readable field breakdown on failure.
func ValidateParams(p Params) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), validationMessage(e)))
	}
	return fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(msgs, "; "))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "filesafe":
		return "must contain only letters, digits, hyphens and underscores"
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}

package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors validates in and returns problems keyed by JSON field name,
// or nil when in is valid.
func (s *Service) fieldErrors(in any, fields ...string) map[string]string {
	var err error
	if len(fields) > 0 {
		err = s.validate.StructPartial(in, fields...)
	} else {
		err = s.validate.Struct(in)
	}
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = formatFieldError(fe)
	}
	return out
}

// formatFieldError formats a single field validation error.
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "hexcolor":
		return "must be a hex color such as #e74c3c"
	default:
		return "is invalid"
	}
}

func normalizeCategory(in types.CategoryInput) types.CategoryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	return in
}

func normalizeItem(in types.ItemInput) types.ItemInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Note = strings.TrimSpace(in.Note)
	in.SearchAliases = strings.TrimSpace(in.SearchAliases)
	return in
}

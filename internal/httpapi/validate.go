package httpapi

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"aistudio/internal/providers/registry"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

const (
	tagChatModel  = "chat_model"
	tagImageModel = "image_model"
)

// newValidator reports fields by their JSON names and knows the chat and
// image alias tables. String lengths are counted in runes.
func newValidator(chat, image registry.ModelTable) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation(tagChatModel, func(fl validator.FieldLevel) bool {
		return chat.Known(fl.Field().String())
	})
	_ = v.RegisterValidation(tagImageModel, func(fl validator.FieldLevel) bool {
		return image.Known(fl.Field().String())
	})
	return v
}

func fieldErrors(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, FieldError{
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: describe(fe),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace, so
// "imageRequest.settings.style" becomes "settings.style".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "eq":
		return fmt.Sprintf("must be %q", fe.Param())
	case tagChatModel, tagImageModel:
		return fmt.Sprintf("unknown model %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

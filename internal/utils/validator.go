// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/apperrors"
)

var validate *validator.Validate

var (
	slugPattern    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	numericPattern = regexp.MustCompile(`^[0-9]+$`)
)

func init() {
	validate = validator.New()

	// Report fields by their JSON names so error keys match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("decimal2", validateDecimal2)
	validate.RegisterValidation("slug", validateSlug)
	validate.RegisterValidation("numeric_string", validateNumericString)
}

// Validate runs struct validation and returns the failures keyed by JSON
// path, or nil when s is valid.
func Validate(s interface{}) *apperrors.ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verr := apperrors.NewValidationError()
	for _, e := range GetValidationErrors(err) {
		verr.Add(e.Field, e.Message)
	}
	if !verr.HasErrors() {
		verr.Add("request", err.Error())
	}
	return verr
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber bool

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// decimal2 accepts non-negative amounts with at most two decimal places.
func validateDecimal2(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.Equal(d.Truncate(2))
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

func validateNumericString(fl validator.FieldLevel) bool {
	return numericPattern.MatchString(fl.Field().String())
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   FieldPath(e.Namespace()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

// FieldPath turns a validator namespace such as
// "CheckoutRequest.order_products[1].quantity" into "order_products.1.quantity".
func FieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}

func getValidationMessage(e validator.FieldError) string {
	field := strings.ReplaceAll(e.Field(), "_", " ")
	switch e.Tag() {
	case "required":
		return "The " + field + " field is required."
	case "email":
		return "The " + field + " field must be a valid email address."
	case "min":
		if e.Kind() == reflect.String {
			return "The " + field + " field must be at least " + e.Param() + " characters."
		}
		if e.Kind() == reflect.Slice {
			return "The " + field + " field must have at least " + e.Param() + " items."
		}
		return "The " + field + " field must be at least " + e.Param() + "."
	case "max":
		if e.Kind() == reflect.String {
			return "The " + field + " field must not be greater than " + e.Param() + " characters."
		}
		return "The " + field + " field must not be greater than " + e.Param() + "."
	case "oneof":
		return "The selected " + field + " is invalid."
	case "gte":
		return "The " + field + " field must be at least " + e.Param() + "."
	case "gt":
		return "The " + field + " field must be greater than " + e.Param() + "."
	case "decimal2":
		return "The " + field + " field must be a non-negative amount with at most 2 decimal places."
	case "slug":
		return "The " + field + " field must only contain lowercase letters, numbers, and dashes."
	case "numeric_string":
		return "The " + field + " field must be a number."
	case "datetime":
		return "The " + field + " field must be a valid date."
	case "strong_password":
		return "The " + field + " field must be at least 8 characters and contain uppercase, lowercase, and a number."
	case "unique":
		return "The " + field + " field has a duplicate value."
	default:
		return "The " + field + " field is invalid."
	}
}

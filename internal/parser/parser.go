package parser

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"dockhand/pkg/recipe"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Parse reads and validates a recipe YAML file, returning the fully resolved
// Recipe struct (defaults applied) or an error.
func Parse(filePath string) (*recipe.Recipe, error) {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("recipe file not found: %s", filePath)
	}

	// Configure Viper
	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetConfigType("yaml")

	// Read the file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("recipe file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	// Unmarshal into Recipe struct
	var rec recipe.Recipe
	if err := v.Unmarshal(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse recipe file - malformed YAML: %w", err)
	}

	// Validate the structure
	if err := validate.Struct(&rec); err != nil {
		return nil, formatValidationError(err)
	}

	// Cross-field rules the struct tags can't express
	if err := validateSource(&rec.Spec.Source); err != nil {
		return nil, err
	}
	if rec.Spec.Notify != nil && rec.Spec.Source.Git == nil {
		return nil, fmt.Errorf("validation error: notify requires a git source so health transitions can be attached to a commit")
	}

	rec.ApplyDefaults()

	return &rec, nil
}

// validateSource enforces that exactly one of path or git is configured.
func validateSource(src *recipe.Source) error {
	if src.Path == "" && src.Git == nil {
		return fmt.Errorf("validation error: source requires either 'path' or 'git'")
	}
	if src.Path != "" && src.Git != nil {
		return fmt.Errorf("validation error: source 'path' and 'git' are mutually exclusive")
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		result := "validation errors:\n"
		for _, msg := range errorMessages {
			result += fmt.Sprintf("  - %s\n", msg)
		}
		return fmt.Errorf("%s", result)
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatFieldError formats a single validation error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "eq":
		return fmt.Sprintf("field '%s' must be '%s'", field, e.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", field, e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, tag)
	}
}

// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/provision/internal/errors"
)

var (
	// identifierRegex matches lowercase identifiers used for resource types and providers.
	identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_\-]{1,62}$`)

	// regionRegex matches provider region identifiers (e.g., us-east-1, europe-west2).
	regionRegex = regexp.MustCompile(`^[a-z]{2,12}(-[a-z0-9]{1,12}){1,3}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// ResourceType validates a resource type identifier (e.g., "vm", "sql_database").
var ResourceType = validation.NewStringRuleWithError(
	isIdentifier,
	validation.NewError(
		"validation_resource_type",
		"must be a lowercase identifier (letters, digits, underscore, hyphen)",
	),
)

// ProviderName validates an infrastructure provider identifier (e.g., "aws", "gcp").
var ProviderName = validation.NewStringRuleWithError(
	isIdentifier,
	validation.NewError(
		"validation_provider_name",
		"must be a lowercase identifier (letters, digits, underscore, hyphen)",
	),
)

// Region validates a provider region identifier (e.g., "us-east-1").
var Region = validation.NewStringRuleWithError(
	isRegion,
	validation.NewError("validation_region", "must be a valid region identifier"),
)

func isIdentifier(s string) bool {
	return identifierRegex.MatchString(s)
}

func isRegion(s string) bool {
	return regionRegex.MatchString(s)
}

package validation

import (
	"encoding/json"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
)

// DecodeJobVariables checks raw job variables against schema and decodes
// them into v. Failures are returned as input validation errors.
func DecodeJobVariables(variables string, schema map[string]interface{}, v interface{}) error {
	if variables == "" {
		variables = "{}"
	}
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &vars); err != nil {
		return errors.NewInputValidationError("Job variables are not a JSON object", err.Error())
	}

	result, err := ValidateVariables(schema, vars)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !result.Valid {
		return errors.NewInputValidationError("Job variables failed validation", FormatValidationErrors(result.Errors)).
			WithMetadata("validationErrors", result.Errors)
	}

	if err := json.Unmarshal([]byte(variables), v); err != nil {
		return errors.NewInputValidationError("Job variables have the wrong shape", err.Error())
	}
	return nil
}

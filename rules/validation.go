package rules

import (
	"fmt"
	"regexp"
	"strings"
)

const maxRulesPerColumn = 64

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateDefinition checks a definition's shape before any CEL compilation.
func ValidateDefinition(def Definition) error {
	if err := validateIdentifier(def.Column); err != nil {
		return fmt.Errorf("invalid column name %q: %w", def.Column, err)
	}

	switch def.Input {
	case InputDuration, InputAge:
	default:
		return fmt.Errorf("column %s: unsupported input %q (must be one of: %s, %s)",
			def.Column, def.Input, InputDuration, InputAge)
	}

	if len(def.Rules) > maxRulesPerColumn {
		return fmt.Errorf("column %s contains %d rules, maximum allowed is %d",
			def.Column, len(def.Rules), maxRulesPerColumn)
	}

	if err := validateCategory(def.Default); err != nil {
		return fmt.Errorf("column %s: invalid default: %w", def.Column, err)
	}

	for i, r := range def.Rules {
		if strings.TrimSpace(r.When) == "" {
			return fmt.Errorf("column %s rule %d: condition cannot be empty", def.Column, i)
		}
		if err := validateCategory(r.Value); err != nil {
			return fmt.Errorf("column %s rule %d: invalid value: %w", def.Column, i, err)
		}
	}

	return nil
}

// validateIdentifier requires a 1-100 character CEL-style identifier.
func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("identifier length %d exceeds maximum of 100 characters", len(name))
	}
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$")
	}
	return nil
}

func validateCategory(value string) error {
	if value == "" {
		return fmt.Errorf("category cannot be empty")
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("category has leading/trailing whitespace: %q", value)
	}
	return nil
}

package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails summarizes a failure for structured logging.
type ErrorDetails struct {
	Kind string
	Hint string
}

// Details classifies err by its marker and suggests a next step for operators.
func Details(err error) ErrorDetails {
	switch {
	case err == nil:
		return ErrorDetails{}
	case errors.Is(err, ErrConfiguration):
		return ErrorDetails{Kind: "configuration", Hint: "check config.toml and environment variables"}
	case errors.Is(err, ErrValidation):
		return ErrorDetails{Kind: "validation", Hint: "inspect the record content in the document store"}
	case errors.Is(err, ErrNotFound):
		return ErrorDetails{Kind: "not_found", Hint: "verify the referenced file or record exists"}
	case errors.Is(err, ErrTimeout):
		return ErrorDetails{Kind: "timeout", Hint: "increase the relevant timeout or retry later"}
	case errors.Is(err, ErrExternalTool):
		return ErrorDetails{Kind: "external", Hint: "check the external service or binary output"}
	default:
		return ErrorDetails{Kind: "transient", Hint: "retry after resetting the record status"}
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

package ops

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apierr "github.com/lumora-app/lumora-client/internal/errors"
)

// renderError maps a canonical error onto the wire. The client's errors
// already carry display-ready copy, so this is a straight projection.
func renderError(err error) fiber.Map {
	var canonical *apierr.APIError
	if errors.As(err, &canonical) {
		return fiber.Map{
			"kind":                canonical.Kind,
			"message":             canonical.UserMessage,
			"retryable":           canonical.Retryable,
			"retry_after_seconds": int(canonical.RetryAfter.Seconds()),
			"remediation":         canonical.Remediation,
		}
	}
	return fiber.Map{
		"kind":    apierr.KindUnknown,
		"message": "Something went wrong. Please try again.",
	}
}

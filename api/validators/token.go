package validators

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidCartToken = errors.New("invalid cart token")

// ParseCartToken accepts a UUID cart token, with or without surrounding space.
func ParseCartToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", ErrInvalidCartToken
	}
	parsed, err := uuid.Parse(token)
	if err != nil {
		return "", ErrInvalidCartToken
	}
	return parsed.String(), nil
}

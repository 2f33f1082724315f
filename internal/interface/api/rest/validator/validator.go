package validator

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrInvalidID    = errors.New("id must be a positive integer")
	ErrAliasMissing = errors.New("alias is required")
)

// ParseID reads a required positive record id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParseOwnerID reads an optional owner id: empty means the owner is not saved yet.
func ParseOwnerID(s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := ParseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func ValidateAlias(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrAliasMissing
	}
	return s, nil
}

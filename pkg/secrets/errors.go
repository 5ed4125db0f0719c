package secrets

import "errors"

var (
	ErrEmptyName        = errors.New("secrets: name is required")
	ErrNotFound         = errors.New("secrets: not found")
	ErrUnauthorized     = errors.New("secrets: unauthorized")
	ErrUnavailable      = errors.New("secrets: store unavailable")
	ErrMissingMetadata  = errors.New("secrets: metadata is missing")
	ErrMissingRecipient = errors.New("secrets: recipient email is missing in metadata")
	ErrEmptyValue       = errors.New("secrets: empty value")
)

package domain

import (
	"context"
	"errors"
	"strings"
)

type CreateClientRequest struct {
	Name        string
	Phone       string
	TaxDocument string
	BirthDate   string
	Metadata    map[string]any
}

type ListClientFilter struct {
	Name               string
	SubscriptionActive *bool
}

type ListClientRequest struct {
	Name               string
	SubscriptionActive *bool
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	List(context.Context, ListClientRequest) ([]Client, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidPhone     = errors.New("invalid_phone")
	ErrInvalidBirthDate = errors.New("invalid_birth_date")
	ErrInvalidMetadata  = errors.New("invalid_metadata")
	ErrInvalidID        = errors.New("invalid_id")
	ErrDuplicatePhone   = errors.New("duplicate_phone")
	ErrNotFound         = errors.New("client_not_found")
)

const (
	MaxMetadataKeys   = 50
	MaxMetadataKeyLen = 40
)

// ValidMetadata reports whether every key is non-empty and short, and the map is small.
func ValidMetadata(metadata map[string]any) bool {
	if len(metadata) > MaxMetadataKeys {
		return false
	}
	for key := range metadata {
		if strings.TrimSpace(key) == "" || len(key) > MaxMetadataKeyLen {
			return false
		}
	}
	return true
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

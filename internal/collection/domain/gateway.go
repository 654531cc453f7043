package domain

import "context"

//go:generate mockgen -source=gateway.go -destination=./mocks/mock_gateway.go -package=mocks

// Gateway delivers a rendered reminder to a phone number.
type Gateway interface {
	Send(ctx context.Context, phone, message string) error
}

package address

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/nordmark/vitrine/internal/domain"
)

// Address is a shipping destination in a user's address book.
type Address struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Name    string `json:"name" validate:"required,max=120"`
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zipCode" validate:"required,max=20"`
	Country string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// Store persists a user's address book.
type Store interface {
	Create(ctx context.Context, addr *Address) error
	GetByID(ctx context.Context, id string) (*Address, error)
	ListByUser(ctx context.Context, userID string) ([]Address, error)
	Delete(ctx context.Context, id, userID string) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the address fields, returning a domain.ValidationError
// carrying per-field messages.
func Validate(addr *Address) error {
	err := validate.Struct(addr)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.Internal(err, "address.validate", "address validation failed")
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "max":
			fields[fe.Field()] = "is too long"
		case "iso3166_1_alpha2":
			fields[fe.Field()] = "must be a two-letter country code"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}

	return &domain.ValidationError{
		Op:     "address.validate",
		Fields: fields,
	}
}

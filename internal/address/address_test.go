package address_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordmark/vitrine/internal/address"
	"github.com/nordmark/vitrine/internal/domain"
)

func validAddress() *address.Address {
	return &address.Address{
		UserID:  "u1",
		Name:    "Home",
		Street:  "123 Main St",
		City:    "Portland",
		State:   "OR",
		ZipCode: "97201",
		Country: "US",
	}
}

func TestValidate_AcceptsCompleteAddress(t *testing.T) {
	assert.NoError(t, address.Validate(validAddress()))
}

func TestValidate_ReportsMissingFieldsByName(t *testing.T) {
	addr := validAddress()
	addr.Street = ""
	addr.City = ""

	err := address.Validate(addr)
	require.Error(t, err)

	fields := domain.GetValidationFields(err)
	require.NotNil(t, fields)
	assert.Equal(t, "is required", fields["Street"])
	assert.Equal(t, "is required", fields["City"])
	assert.NotContains(t, fields, "Name")
}

func TestValidate_CountryMustBeTwoLetterCode(t *testing.T) {
	addr := validAddress()
	addr.Country = "USA"

	err := address.Validate(addr)
	require.Error(t, err)

	fields := domain.GetValidationFields(err)
	require.NotNil(t, fields)
	assert.Equal(t, "must be a two-letter country code", fields["Country"])
}

func TestValidate_ReturnsValidationError(t *testing.T) {
	addr := validAddress()
	addr.Name = ""

	err := address.Validate(addr)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	assert.Nil(t, domain.GetValidationFields(assert.AnError))
}

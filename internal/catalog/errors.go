package catalog

import "github.com/nordmark/vitrine/internal/domain"

var (
	// ErrMissingBaseURL is returned when the catalog base URL is not configured.
	ErrMissingBaseURL = &domain.Error{Code: domain.EINVALID, Message: "catalog base URL is required"}

	// ErrProductNotFound is returned when the catalog has no such product.
	ErrProductNotFound = &domain.Error{Code: domain.ENOTFOUND, Message: "Product not found"}
)

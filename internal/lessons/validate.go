package lessons

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every lesson definition in the catalog. All problems are
// reported together, each prefixed with the language and lesson position.
func Validate(catalog Catalog) error {
	var errs []error
	for _, code := range sortedCodes(catalog) {
		if code == "" {
			errs = append(errs, errors.New("empty language code"))
			continue
		}
		for i, def := range catalog[code] {
			if err := validate.Struct(def); err != nil {
				errs = append(errs, fmt.Errorf("%s lesson %d (%q): %w", code, i+1, def.Title, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Package rules imports all rule packages to trigger their init() registration.
// Import this package for side effects only.
package rules

import (
	// Import all rule packages to register them with the registry.
	_ "emvqr/internal/rules/additional"
	_ "emvqr/internal/rules/amount"
	_ "emvqr/internal/rules/category"
	_ "emvqr/internal/rules/checksum"
	_ "emvqr/internal/rules/currency"
	_ "emvqr/internal/rules/duplicate"
	_ "emvqr/internal/rules/format"
	_ "emvqr/internal/rules/location"
	_ "emvqr/internal/rules/merchant"
	_ "emvqr/internal/rules/required"
)

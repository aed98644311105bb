// Package options defines the generic options interface and helpers shared
// by all option groups.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty. It builds flag names like "milvus.address" or
// "prefix.milvus.address".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by every option group.
type IOptions interface {
	// Validate checks the options and may complete missing values.
	Validate() []error

	// AddFlags registers the options on the flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

package catalog

import (
	"errors"
	"fmt"
)

// ErrCatalogUnavailable indicates a remote catalog could not be reached.
// Callers should treat the catalog as empty rather than aborting unrelated
// sources.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// ParseError describes a malformed record in a source file or response.
// It is localized to the offending record; the rest of the catalog loads.
type ParseError struct {
	Source Source
	Record string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s record %q: %s", e.Source, e.Record, e.Reason)
}

package domain

import (
	"testing"

	"hatchery/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of
// implementation packages so every backend can depend on it.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.RequireNoImports(t, ".", testutil.ImportsInternal, "pkg/domain must stay implementation-free")
}

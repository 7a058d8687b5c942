package memory

import (
	"testing"

	"hatchery/testutil"
)

func TestImportsOnlyDomain(t *testing.T) {
	testutil.RequireNoImports(t, ".", testutil.ModuleImportsExcept("hatchery", "hatchery/pkg/domain"),
		"the memory store may only depend on the domain package")
}

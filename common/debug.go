package common

import (
	"github.com/davecgh/go-spew/spew"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.MaxDepth = 4
}

// SDump renders values with go-spew for debug-level log attributes.
//
// Parameters:
//   - a: the values to dump
//
// Returns:
//   - string: the formatted dump
func SDump(a ...any) string {
	return spewConfig.Sdump(a...)
}

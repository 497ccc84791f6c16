//go:build !statsview

package statsview

import (
	"context"
	"io"
)

const DefaultAddress = ""

// Launch does nothing without the statsview build tag.
func Launch(_ context.Context, _ string, _ io.Writer) {
}

// Available is false without the statsview build tag.
func Available() bool {
	return false
}

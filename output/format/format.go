// Package format renders frames for human or machine consumption, used by
// the CLI's preview command.
package format

import (
	"io"

	"github.com/modelpad/modelpad/core"
)

type Formatter interface {
	Format(frame *core.Frame, writer io.Writer) error
	Name() string
}

// Package naming hands out sequential diagnostic names for background workers.
package naming

import (
	"fmt"
	"sync/atomic"

	"github.com/vnykmshr/logpipe/pkg/common/validation"
)

// Factory produces names of the form "<prefix>-<index>", index starting at 0.
type Factory struct {
	prefix string
	count  atomic.Int64
}

// NewFactory creates a Factory for prefix.
func NewFactory(prefix string) (*Factory, error) {
	if err := validation.ValidateNotEmpty("naming", "prefix", prefix); err != nil {
		return nil, err
	}
	return &Factory{prefix: prefix}, nil
}

// Next returns the next unique name.
func (f *Factory) Next() string {
	return fmt.Sprintf("%s-%d", f.prefix, f.count.Add(1)-1)
}

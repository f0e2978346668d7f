package panicerr

import (
	"fmt"

	"github.com/sourcegraph/conc/panics"

	"github.com/kazz187/tasktracker/pkg/cerr"
)

// Run calls fn and reports a panic raised by it as an Internal error
// carrying the recovered value and its stack.
func Run(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if r := catcher.Recovered(); r != nil {
		e := cerr.NewError(cerr.Internal, "internal error", fmt.Errorf("panic: %v", r.Value))
		e.Stack = string(r.Stack)
		return e
	}
	return err
}

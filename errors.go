package nstree

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by namespace operations. Match them with errors.Is;
// the more specific sentinels wrap the kind they belong to.
var (
	ErrIllegalArgument = errors.New("illegal argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotWritable     = errors.New("not writable")

	ErrIllegalMove      = fmt.Errorf("%w: illegal move", ErrIllegalArgument)
	ErrDuplicateName    = fmt.Errorf("%w: duplicate name", ErrIllegalArgument)
	ErrCyclicParentage  = fmt.Errorf("%w: cyclic parentage", ErrIllegalArgument)
	ErrTerminated       = fmt.Errorf("%w: node is terminated", ErrInvalidState)
	ErrCannotTerminate  = fmt.Errorf("%w: node cannot be terminated", ErrInvalidState)
	ErrTargetTerminated = fmt.Errorf("%w: link target is terminated", ErrIllegalArgument)
)

// NotWritableError reports a writability precondition violated by Node.
// The name is captured when the error is created so the error can be
// rendered without touching the tree.
type NotWritableError struct {
	Node NodeInfo
	name string
}

// NewNotWritableError creates a NotWritableError for node
func NewNotWritableError(node NodeInfo, name string) *NotWritableError {
	return &NotWritableError{Node: node, name: name}
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNotWritable, e.name)
}

// Name returns the name the offending node had when the error was raised
func (e *NotWritableError) Name() string {
	return e.name
}

func (e *NotWritableError) Is(target error) bool {
	return target == ErrNotWritable
}

// IndexError reports a 1-based position outside [1, Count]
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %d not in [1, %d]", ErrIndexOutOfRange, e.Index, e.Count)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

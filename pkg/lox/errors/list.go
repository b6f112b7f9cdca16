package errors

import (
	"encoding/json"
	"strings"
)

// List collects diagnostics from a stage that keeps going after an error.
// A non-empty List is itself an error.
type List []*LoxError

// Add appends an error to the list.
func (l *List) Add(err *LoxError) {
	*l = append(*l, err)
}

// Len returns the number of collected errors.
func (l List) Len() int { return len(l) }

// Err returns the list as an error, or nil when it is empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Error renders one diagnostic per line.
func (l List) Error() string {
	lines := make([]string, len(l))
	for i, err := range l {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// WithFile returns a copy of the list with the file path set on every error.
func (l List) WithFile(file string) List {
	out := make(List, len(l))
	for i, err := range l {
		out[i] = err.WithFile(file)
	}
	return out
}

// ToJSON returns the list as a JSON array.
func (l List) ToJSON() ([]byte, error) {
	if l == nil {
		l = List{}
	}
	return json.Marshal([]*LoxError(l))
}

// Flatten returns the diagnostics carried by err: every entry of a List, the
// single LoxError, or nil for any other error.
func Flatten(err error) List {
	switch e := err.(type) {
	case List:
		return e
	case *LoxError:
		return List{e}
	default:
		return nil
	}
}

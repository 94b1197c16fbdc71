package loader

import "fmt"

// UnsupportedFormatError reports that no loader can handle a path.
type UnsupportedFormatError struct {
	Path   string
	Ext    string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext != "" {
		return fmt.Sprintf("unsupported dataset format %q for %q: %s", e.Ext, e.Path, e.Reason)
	}
	return fmt.Sprintf("unsupported dataset path %q: %s", e.Path, e.Reason)
}

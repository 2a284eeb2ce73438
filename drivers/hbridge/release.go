package hbridge

import "strings"

// OutputError is one output that failed to release.
type OutputError struct {
	Output string
	Err    error
}

// ReleaseError lists the outputs whose release failed during Deinit.
// The remaining outputs were still released.
type ReleaseError struct {
	Failed []OutputError
}

func (e *ReleaseError) Error() string {
	var b strings.Builder
	b.WriteString("hbridge: release failed:")
	for i, f := range e.Failed {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte(' ')
		b.WriteString(f.Output)
		b.WriteString(" (")
		b.WriteString(f.Err.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap exposes the individual causes to errors.Is / errors.As.
func (e *ReleaseError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

func mergeRelease(errs ...error) error {
	var out *ReleaseError
	for _, err := range errs {
		if err == nil {
			continue
		}
		if out == nil {
			out = &ReleaseError{}
		}
		if re, ok := err.(*ReleaseError); ok {
			out.Failed = append(out.Failed, re.Failed...)
		} else {
			out.Failed = append(out.Failed, OutputError{Output: "?", Err: err})
		}
	}
	if out == nil {
		return nil
	}
	return out
}

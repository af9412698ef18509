package domain

import "fmt"

// TransportFault reports a failed upstream request. StatusCode is zero when
// no response was received.
type TransportFault struct {
	URL        string
	StatusCode int
	Err        error
}

func (f *TransportFault) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", f.URL, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("fetch %s: %v", f.URL, f.Err)
}

func (f *TransportFault) Unwrap() error { return f.Err }

// PersistFault reports a failed output write. It aborts the run.
type PersistFault struct {
	Path string
	Err  error
}

func (f *PersistFault) Error() string {
	return fmt.Sprintf("persist %s: %v", f.Path, f.Err)
}

func (f *PersistFault) Unwrap() error { return f.Err }

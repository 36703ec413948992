package logstream

import "errors"

// ErrMalformed wraps any transport or JSON-structure failure while parsing
// a log stream. The enclosing batch fails as a whole rather than applying
// a partial record set.
var ErrMalformed = errors.New("malformed log stream")

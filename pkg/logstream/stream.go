// Package logstream incrementally parses the tail log response returned by
// readLog: {info: {...}, log: [record, ...]}. It decodes the log array one
// record at a time with encoding/json.Decoder.Token so a multi-megabyte
// batch never has to be buffered in full.
package logstream

import (
	"encoding/json"
	"fmt"
	"io"
)

// Info is the header object preceding the log array.
type Info struct {
	Start *int64 `json:"start"`
	Cseq  *int64 `json:"cseq"`
	Prune *int64 `json:"prune"`
}

// Stream yields Records from a readLog response body in order. Callers must
// call Close when done, whether or not Next ran to completion.
type Stream struct {
	dec   *json.Decoder
	rc    io.ReadCloser
	info  Info
	inLog bool
	done  bool
}

// NewStream wraps rc and eagerly parses the info header, leaving the
// decoder positioned to yield log entries one at a time from Next. rc is
// assumed to present "info" before "log" in object key order, which holds
// for every response this pipeline consumes.
func NewStream(rc io.ReadCloser) (*Stream, error) {
	s := &Stream{dec: json.NewDecoder(rc), rc: rc}
	if err := s.readHeader(); err != nil {
		rc.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stream) readHeader() error {
	tok, err := s.dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected object, got %v", ErrMalformed, tok)
	}

	for s.dec.More() {
		keyTok, err := s.dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, _ := keyTok.(string)

		switch key {
		case "info":
			if err := s.dec.Decode(&s.info); err != nil {
				return fmt.Errorf("%w: decoding info: %v", ErrMalformed, err)
			}
		case "log":
			valTok, err := s.dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			if valTok == nil {
				// log: null, no records follow.
				s.done = true
				return nil
			}
			d, ok := valTok.(json.Delim)
			if !ok || d != '[' {
				return fmt.Errorf("%w: expected array for log, got %v", ErrMalformed, valTok)
			}
			s.inLog = true
			return nil
		default:
			var skip json.RawMessage
			if err := s.dec.Decode(&skip); err != nil {
				return fmt.Errorf("%w: skipping field %q: %v", ErrMalformed, key, err)
			}
		}
	}
	// Object closed without a "log" field: treat as an empty batch.
	s.done = true
	return nil
}

// Info returns the parsed header. Valid once NewStream has returned.
func (s *Stream) Info() Info {
	return s.info
}

// Next returns the next record, or ok=false once the log array is
// exhausted. A non-nil error terminates the stream; the caller should stop
// calling Next and close it.
func (s *Stream) Next() (Record, bool, error) {
	if s.done || !s.inLog {
		return Record{}, false, nil
	}
	if !s.dec.More() {
		if _, err := s.dec.Token(); err != nil {
			return Record{}, false, fmt.Errorf("%w: closing log array: %v", ErrMalformed, err)
		}
		s.done = true
		return Record{}, false, nil
	}

	var rec Record
	if err := s.dec.Decode(&rec); err != nil {
		return Record{}, false, fmt.Errorf("%w: decoding record: %v", ErrMalformed, err)
	}
	return rec, true, nil
}

// Close releases the underlying response body.
func (s *Stream) Close() error {
	if s.rc == nil {
		return nil
	}
	return s.rc.Close()
}

// EmptyStream returns a Stream that yields no records and whose Info has a
// nil Start, the shape a 404 or 416 response from readLog resolves to.
func EmptyStream() *Stream {
	return &Stream{done: true}
}

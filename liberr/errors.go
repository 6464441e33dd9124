// Package liberr holds the error taxonomy shared by the extraction and projection stages.
package liberr

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	KindDecode ErrorKind = iota
	KindInvalidBpm
	KindInvalidSampleRate
	KindMissingLocation
	KindIdentifierOverflow
	KindUnsupportedFileType
	KindPathNotUnderRoot
	KindMalformedPath
	KindDatetimeParse
	KindStorage
)

var kindNames = map[ErrorKind]string{
	KindDecode:              "decode error",
	KindInvalidBpm:          "invalid bpm",
	KindInvalidSampleRate:   "invalid sample rate",
	KindMissingLocation:     "missing location",
	KindIdentifierOverflow:  "identifier overflow",
	KindUnsupportedFileType: "unsupported file type",
	KindPathNotUnderRoot:    "path not under root",
	KindMalformedPath:       "malformed path",
	KindDatetimeParse:       "datetime parse error",
	KindStorage:             "storage error",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Sentinels for errors.Is; an *Error matches the sentinel of its kind.
var (
	ErrDecode              = &Error{Kind: KindDecode}
	ErrInvalidBpm          = &Error{Kind: KindInvalidBpm}
	ErrInvalidSampleRate   = &Error{Kind: KindInvalidSampleRate}
	ErrMissingLocation     = &Error{Kind: KindMissingLocation}
	ErrIdentifierOverflow  = &Error{Kind: KindIdentifierOverflow}
	ErrUnsupportedFileType = &Error{Kind: KindUnsupportedFileType}
	ErrPathNotUnderRoot    = &Error{Kind: KindPathNotUnderRoot}
	ErrMalformedPath       = &Error{Kind: KindMalformedPath}
	ErrDatetimeParse       = &Error{Kind: KindDatetimeParse}
	ErrStorage             = &Error{Kind: KindStorage}
)

// Error is a pipeline failure tied to the entity and field that caused it.
type Error struct {
	Op     string    // Operation that failed
	Kind   ErrorKind // Type of error
	Entity string    // "track", "playlist", "crate", "cue"
	ID     int64
	Field  string
	Err    error // Underlying error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Entity != "" {
		fmt.Fprintf(&b, " (%s %d", e.Entity, e.ID)
		if e.Field != "" {
			fmt.Fprintf(&b, ", field %s", e.Field)
		}
		b.WriteString(")")
	} else if e.Field != "" {
		fmt.Fprintf(&b, " (field %s)", e.Field)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind wrapping err.
func New(kind ErrorKind, op string, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// For returns a copy of e annotated with the offending entity and field.
// Fields already set on e are kept.
func (e *Error) For(entity string, id int64, field string) *Error {
	out := *e
	if out.Entity == "" {
		out.Entity = entity
		out.ID = id
	}
	if out.Field == "" {
		out.Field = field
	}
	return &out
}

// Annotate attaches entity information to err when it is an *Error, otherwise it wraps err
// as a storage failure of that entity.
func Annotate(err error, op, entity string, id int64, field string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.For(entity, id, field)
	}
	return &Error{Op: op, Kind: KindStorage, Entity: entity, ID: id, Field: field, Err: err}
}

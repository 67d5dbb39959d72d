package codec

import (
	"errors"
	"fmt"
)

// Kind classifies codec failures so callers can decide how to surface them.
type Kind int

const (
	// KindMalformed means the input bytes or text could not be decoded or encoded.
	KindMalformed Kind = iota + 1
	// KindCapacity means the data is valid but does not fit its target.
	KindCapacity
	// KindConfig means a named ROM section, address or label is unknown.
	KindConfig
	// KindBestEffort is used for conditions that are logged and then ignored.
	KindBestEffort
)

var kindNames = map[Kind]string{
	KindMalformed:  "malformed",
	KindCapacity:   "capacity",
	KindConfig:     "config",
	KindBestEffort: "best-effort",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var (
	// ErrBufferUnderrun indicates a read past the end of the input buffer.
	ErrBufferUnderrun = errors.New("buffer underrun")
	// ErrBufferOverrun indicates the output would exceed its allowed size.
	ErrBufferOverrun = errors.New("buffer overrun")
	// ErrNoHuffmanTable indicates a string needs a Huffman tree that does not exist.
	ErrNoHuffmanTable = errors.New("huffman table does not exist for character")
	// ErrBadEscape indicates a malformed {XX} escape sequence.
	ErrBadEscape = errors.New("bad character escape")
	// ErrTooLong indicates a string or table that exceeds its length field.
	ErrTooLong = errors.New("too long")
	// ErrUnknownSection indicates an unknown named ROM section.
	ErrUnknownSection = errors.New("section does not exist")
	// ErrUnknownAddress indicates an unknown named ROM address.
	ErrUnknownAddress = errors.New("address does not exist")
	// ErrInconsistent indicates a record whose redundant fields disagree.
	ErrInconsistent = errors.New("inconsistent record")
	// ErrUnknownCommand indicates an unknown behaviour command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadParameter indicates a missing, extra or out of range command parameter.
	ErrBadParameter = errors.New("bad parameter")
)

// Error carries a Kind alongside the failing operation and its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error, format string, args []interface{}) error {
	switch {
	case err == nil:
		err = fmt.Errorf(format, args...)
	case format != "":
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Malformed wraps err as a malformed-input error for op.
func Malformed(op string, err error, format string, args ...interface{}) error {
	return newError(KindMalformed, op, err, format, args)
}

// Capacity wraps err as a capacity error for op.
func Capacity(op string, err error, format string, args ...interface{}) error {
	return newError(KindCapacity, op, err, format, args)
}

// Config wraps err as a configuration error for op.
func Config(op string, err error, format string, args ...interface{}) error {
	return newError(KindConfig, op, err, format, args)
}

// KindOf returns the Kind of the first codec error in err's chain, or 0.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

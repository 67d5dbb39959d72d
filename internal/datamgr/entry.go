// Package datamgr tracks edits to decoded game data and writes the results
// back to a ROM image or to a directory of binary files.
//
// An Entry holds three decoded copies of one object: the original as loaded,
// the last committed state and the current working copy. Copies are made by
// decoding the stored bytes again, so T needs no clone method.
package datamgr

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Serialiser converts between a decoded object and its stored bytes.
type Serialiser[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(b []byte) (T, error)
	Equal(a, b T) bool
}

// Funcs adapts three functions to a Serialiser.
type Funcs[T any] struct {
	EncodeFn func(T) ([]byte, error)
	DecodeFn func([]byte) (T, error)
	EqualFn  func(a, b T) bool
}

func (f Funcs[T]) Encode(v T) ([]byte, error) { return f.EncodeFn(v) }
func (f Funcs[T]) Decode(b []byte) (T, error) { return f.DecodeFn(b) }
func (f Funcs[T]) Equal(a, b T) bool          { return f.EqualFn(a, b) }

// State is the lifecycle stage of an entry.
type State int

const (
	Uninitialised State = iota
	Initialised
	Modified
	Committed
)

var stateNames = [...]string{"uninitialised", "initialised", "modified", "committed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Entry is one named, editable object.
type Entry[T any] struct {
	name     string
	filename string
	begin    uint32
	ser      Serialiser[T]

	data  T
	orig  T
	saved T

	origRaw   []byte
	raw       []byte
	ready     bool
	committed bool
}

// NewEntry wraps the stored bytes of an object. Call Initialise before use.
func NewEntry[T any](name, filename string, raw []byte, ser Serialiser[T]) *Entry[T] {
	b := append([]byte(nil), raw...)
	return &Entry[T]{name: name, filename: filename, ser: ser, origRaw: b, raw: b}
}

// Initialise decodes the stored bytes into the original, saved and current
// copies.
func (e *Entry[T]) Initialise() error {
	var err error
	if e.orig, err = e.ser.Decode(e.origRaw); err != nil {
		return errors.Wrapf(err, "initialise %s", e.name)
	}
	if e.saved, err = e.ser.Decode(e.raw); err != nil {
		return errors.Wrapf(err, "initialise %s", e.name)
	}
	if e.data, err = e.ser.Decode(e.raw); err != nil {
		return errors.Wrapf(err, "initialise %s", e.name)
	}
	e.ready = true
	return nil
}

// Data returns the working copy. Mutating it marks the entry modified.
func (e *Entry[T]) Data() T {
	return e.data
}

// SetData replaces the working copy.
func (e *Entry[T]) SetData(v T) {
	e.data = v
}

// SetBytes decodes b and makes it the working copy.
func (e *Entry[T]) SetBytes(b []byte) error {
	v, err := e.ser.Decode(b)
	if err != nil {
		return errors.Wrapf(err, "set %s", e.name)
	}
	e.data = v
	return nil
}

// OrigData returns the object as first loaded.
func (e *Entry[T]) OrigData() T {
	return e.orig
}

// HasDataChanged reports whether the working copy differs from the original.
func (e *Entry[T]) HasDataChanged() bool {
	return e.ready && !e.ser.Equal(e.orig, e.data)
}

// HasSavedDataChanged reports whether the working copy differs from the last
// commit.
func (e *Entry[T]) HasSavedDataChanged() bool {
	return e.ready && !e.ser.Equal(e.saved, e.data)
}

// State reports where the entry is in its lifecycle.
func (e *Entry[T]) State() State {
	switch {
	case !e.ready:
		return Uninitialised
	case e.HasSavedDataChanged():
		return Modified
	case e.committed:
		return Committed
	}
	return Initialised
}

// Commit encodes the working copy and makes it the saved state. Committing
// an unchanged entry does nothing.
func (e *Entry[T]) Commit() error {
	if !e.HasSavedDataChanged() {
		return nil
	}
	b, err := e.ser.Encode(e.data)
	if err != nil {
		return errors.Wrapf(err, "commit %s", e.name)
	}
	saved, err := e.ser.Decode(b)
	if err != nil {
		return errors.Wrapf(err, "commit %s", e.name)
	}
	e.raw, e.saved, e.committed = b, saved, true
	return nil
}

// AbandonChanges restores the working copy to the saved state.
func (e *Entry[T]) AbandonChanges() error {
	if !e.ready {
		return nil
	}
	d, err := e.ser.Decode(e.raw)
	if err != nil {
		return errors.Wrapf(err, "abandon %s", e.name)
	}
	e.data = d
	return nil
}

// Bytes returns the encoded working copy. While it matches the saved state
// a copy of the stored bytes is returned without encoding again.
func (e *Entry[T]) Bytes() ([]byte, error) {
	if !e.HasSavedDataChanged() {
		return append([]byte(nil), e.raw...), nil
	}
	b, err := e.ser.Encode(e.data)
	return b, errors.Wrapf(err, "encode %s", e.name)
}

// Clone returns a working copy that shares nothing with the entry.
func (e *Entry[T]) Clone() (T, error) {
	b, err := e.Bytes()
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := e.ser.Decode(b)
	return v, errors.Wrapf(err, "copy %s", e.name)
}

// OrigBytes returns a copy of the bytes the entry was created with.
func (e *Entry[T]) OrigBytes() []byte {
	return append([]byte(nil), e.origRaw...)
}

func (e *Entry[T]) Name() string             { return e.name }
func (e *Entry[T]) SetName(name string)      { e.name = name }
func (e *Entry[T]) Filename() string         { return e.filename }
func (e *Entry[T]) SetFilename(f string)     { e.filename = f }
func (e *Entry[T]) StartAddress() uint32     { return e.begin }
func (e *Entry[T]) SetStartAddress(a uint32) { e.begin = a }

// DataLength is the size of the encoded working copy.
func (e *Entry[T]) DataLength() (int, error) {
	b, err := e.Bytes()
	return len(b), err
}

// EndAddress is the start address plus the encoded size.
func (e *Entry[T]) EndAddress() (uint32, error) {
	n, err := e.DataLength()
	return e.begin + uint32(n), err
}

// OrigDataLength is the size of the original bytes.
func (e *Entry[T]) OrigDataLength() int {
	return len(e.origRaw)
}

// OrigEndAddress is the start address plus the original size.
func (e *Entry[T]) OrigEndAddress() uint32 {
	return e.begin + uint32(len(e.origRaw))
}

// Save writes the encoded working copy to dir/filename.
func (e *Entry[T]) Save(dir string) error {
	b, err := e.Bytes()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, e.filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "save %s", e.name)
	}
	return errors.Wrapf(os.WriteFile(path, b, 0o644), "save %s", e.name)
}

// Import reads dir/filename back into the working copy and reports whether
// that changed it. A missing file leaves the entry alone.
func (e *Entry[T]) Import(dir string) (bool, error) {
	b, err := os.ReadFile(filepath.Join(dir, e.filename))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "import %s", e.name)
	}
	v, err := e.ser.Decode(b)
	if err != nil {
		return false, errors.Wrapf(err, "import %s", e.name)
	}
	if e.ser.Equal(e.data, v) {
		return false, nil
	}
	e.data = v
	return true, nil
}

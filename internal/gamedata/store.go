package gamedata

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/rcarmo/landstalker/internal/datamgr"
)

// ErrNoEntry is returned for a handle or name the store does not hold.
var ErrNoEntry = errors.New("no such entry")

// ErrDuplicateName is returned when an entry name is already taken.
var ErrDuplicateName = errors.New("duplicate entry name")

// Handle is a stable reference to one entry of a Store. Handles are never
// reused, so one taken from a store stays valid for its lifetime.
type Handle[T any] struct {
	id int
}

// Valid reports whether the handle was issued by a store.
func (h Handle[T]) Valid() bool {
	return h.id > 0
}

// Store owns every entry of one kind of data.
type Store[T any] struct {
	kind    string
	mgr     *datamgr.Manager
	entries map[int]*datamgr.Entry[T]
	names   map[string]int
	next    int
}

func newStore[T any](kind string, mgr *datamgr.Manager) *Store[T] {
	return &Store[T]{
		kind:    kind,
		mgr:     mgr,
		entries: make(map[int]*datamgr.Entry[T]),
		names:   make(map[string]int),
		next:    1,
	}
}

// Kind names the data held.
func (s *Store[T]) Kind() string {
	return s.kind
}

// Add initialises an entry and takes ownership of it.
func (s *Store[T]) Add(e *datamgr.Entry[T]) (Handle[T], error) {
	if _, dup := s.names[e.Name()]; dup {
		return Handle[T]{}, errors.Wrapf(ErrDuplicateName, "%s %q", s.kind, e.Name())
	}
	if err := e.Initialise(); err != nil {
		return Handle[T]{}, err
	}
	id := s.next
	s.next++
	s.entries[id] = e
	s.names[e.Name()] = id
	s.mgr.Track(e)
	return Handle[T]{id: id}, nil
}

func (s *Store[T]) entry(h Handle[T]) (*datamgr.Entry[T], error) {
	e, ok := s.entries[h.id]
	if !ok {
		return nil, errors.Wrapf(ErrNoEntry, "%s handle %d", s.kind, h.id)
	}
	return e, nil
}

// Lookup finds an entry by name.
func (s *Store[T]) Lookup(name string) (Handle[T], bool) {
	id, ok := s.names[name]
	return Handle[T]{id: id}, ok
}

// Get returns a copy of an entry's working state. Changing it has no effect
// on the store; edits go through Mutate.
func (s *Store[T]) Get(h Handle[T]) (T, error) {
	e, err := s.entry(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return e.Clone()
}

// Name returns the name of an entry.
func (s *Store[T]) Name(h Handle[T]) (string, error) {
	e, err := s.entry(h)
	if err != nil {
		return "", err
	}
	return e.Name(), nil
}

// Mutate hands fn a copy of an entry's working state and stores what it
// returns. If fn fails the working state, including earlier uncommitted
// edits, is left as it was.
func (s *Store[T]) Mutate(h Handle[T], fn func(T) (T, error)) error {
	e, err := s.entry(h)
	if err != nil {
		return err
	}
	v, err := e.Clone()
	if err != nil {
		return err
	}
	if v, err = fn(v); err != nil {
		return err
	}
	e.SetData(v)
	return nil
}

// SetBytes replaces an entry's working state with the decoding of b.
func (s *Store[T]) SetBytes(h Handle[T], b []byte) error {
	e, err := s.entry(h)
	if err != nil {
		return err
	}
	return e.SetBytes(b)
}

// State reports the lifecycle stage of an entry.
func (s *Store[T]) State(h Handle[T]) (datamgr.State, error) {
	e, err := s.entry(h)
	if err != nil {
		return datamgr.Uninitialised, err
	}
	return e.State(), nil
}

// Bytes returns the encoded working copy of an entry.
func (s *Store[T]) Bytes(h Handle[T]) ([]byte, error) {
	e, err := s.entry(h)
	if err != nil {
		return nil, err
	}
	return e.Bytes()
}

// Handles lists every entry in the order they were added.
func (s *Store[T]) Handles() []Handle[T] {
	ids := make([]int, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Handle[T], len(ids))
	for i, id := range ids {
		out[i] = Handle[T]{id: id}
	}
	return out
}

// Names lists every entry name, sorted.
func (s *Store[T]) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len is the number of entries.
func (s *Store[T]) Len() int {
	return len(s.entries)
}

func (s *Store[T]) named(name string) (*datamgr.Entry[T], error) {
	id, ok := s.names[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoEntry, "%s %q", s.kind, name)
	}
	return s.entries[id], nil
}

func (s *Store[T]) bytesOf(name string) ([]byte, error) {
	e, err := s.named(name)
	if err != nil {
		return nil, err
	}
	return e.Bytes()
}

func (s *Store[T]) setBytesOf(name string, b []byte) error {
	e, err := s.named(name)
	if err != nil {
		return err
	}
	return e.SetBytes(b)
}

// concat encodes the given entries back to back.
func (s *Store[T]) concat(hs []Handle[T]) ([]byte, error) {
	var out []byte
	for _, h := range hs {
		b, err := s.Bytes(h)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

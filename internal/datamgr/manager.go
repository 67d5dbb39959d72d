package datamgr

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
	"github.com/rcarmo/landstalker/internal/rom"
)

var log = logging.For("datamgr")

// Target is the image pending writes are injected into. *rom.Rom satisfies it.
type Target interface {
	SectionExists(name string) bool
	Section(name string) (rom.Section, error)
	AddressExists(name string) bool
	Address(name string) (uint32, error)
	WriteBytes(addr uint32, b []byte) error
}

// Tracked is the part of an Entry a Manager needs, independent of T.
type Tracked interface {
	Name() string
	Commit() error
	HasSavedDataChanged() bool
	Save(dir string) error
	Import(dir string) (bool, error)
}

// PendingWrite is a block of bytes waiting to be written to a named section
// or address.
type PendingWrite struct {
	Name string
	Data []byte
}

// Manager collects the entries of one kind of data and the writes needed to
// put them back into an image.
type Manager struct {
	description string

	mu       sync.Mutex
	entries  []Tracked
	pending  []PendingWrite
	hooks    []func() error
	status   string
	progress float64
}

// NewManager returns an empty manager.
func NewManager(description string) *Manager {
	return &Manager{description: description, status: "Waiting"}
}

// Description names the data the manager looks after.
func (m *Manager) Description() string {
	return m.description
}

// Track registers entries for commit and save.
func (m *Manager) Track(entries ...Tracked) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
}

// OnCommit registers a function run after the tracked entries are committed.
func (m *Manager) OnCommit(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// AddPendingWrite queues bytes for a named section or address.
func (m *Manager) AddPendingWrite(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, PendingWrite{Name: name, Data: data})
}

// ClearPendingWrites drops every queued write.
func (m *Manager) ClearPendingWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

// PendingWrites returns the queued writes in order.
func (m *Manager) PendingWrites() []PendingWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PendingWrite(nil), m.pending...)
}

// HasBeenModified reports whether any tracked entry has uncommitted edits.
func (m *Manager) HasBeenModified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.HasSavedDataChanged() {
			return true
		}
	}
	return false
}

// WillFitInRom checks every queued write against the size of its section.
// Writes to a named address may be at most four bytes. A name that is
// neither is a configuration error.
func (m *Manager) WillFitInRom(t Target) (bool, error) {
	for _, w := range m.PendingWrites() {
		switch {
		case t.SectionExists(w.Name):
			s, err := t.Section(w.Name)
			if err != nil {
				return false, err
			}
			if len(w.Data) > s.Size() {
				log.Debug("%s: %d bytes will not fit in %s (%d bytes)", m.description, len(w.Data), w.Name, s.Size())
				return false, nil
			}
		case t.AddressExists(w.Name):
			if len(w.Data) > 4 {
				return false, nil
			}
		default:
			return false, codec.Config("will fit", codec.ErrUnknownSection, "%q", w.Name)
		}
	}
	return true, nil
}

// InjectIntoRom writes every queued write, commits the tracked entries and
// clears the queue.
func (m *Manager) InjectIntoRom(t Target) error {
	for _, w := range m.PendingWrites() {
		var addr uint32
		switch {
		case t.SectionExists(w.Name):
			s, err := t.Section(w.Name)
			if err != nil {
				return err
			}
			addr = s.Begin
		case t.AddressExists(w.Name):
			a, err := t.Address(w.Name)
			if err != nil {
				return err
			}
			addr = a
		default:
			return codec.Config("inject", codec.ErrUnknownSection, "%q", w.Name)
		}
		if err := t.WriteBytes(addr, w.Data); err != nil {
			return errors.Wrapf(err, "inject %s", w.Name)
		}
		log.Debug("ROM WRITE @ 0x%06X - %06d bytes (finish 0x%06X)", addr, len(w.Data), addr+uint32(len(w.Data)))
	}
	if err := m.CommitAll(); err != nil {
		return err
	}
	m.ClearPendingWrites()
	return nil
}

// AbandonRomInjection drops the queued writes without touching the entries.
func (m *Manager) AbandonRomInjection() {
	m.ClearPendingWrites()
}

// CommitAll commits every tracked entry then runs the commit hooks.
func (m *Manager) CommitAll() error {
	m.mu.Lock()
	entries := append([]Tracked(nil), m.entries...)
	hooks := append([]func() error(nil), m.hooks...)
	m.mu.Unlock()

	for _, e := range entries {
		if err := e.Commit(); err != nil {
			return err
		}
	}
	for _, h := range hooks {
		if err := h(); err != nil {
			return err
		}
	}
	return nil
}

// Save writes every tracked entry under dir, then commits them.
func (m *Manager) Save(dir string) error {
	m.mu.Lock()
	entries := append([]Tracked(nil), m.entries...)
	m.mu.Unlock()

	for i, e := range entries {
		m.SetProgress("Saving "+e.Name(), float64(i)/float64(len(entries)))
		if err := e.Save(dir); err != nil {
			return err
		}
	}
	m.SetProgress("Done", 1)
	return m.CommitAll()
}

// Import reads every tracked entry back from dir and returns how many
// changed. Entries with no file are left as they are.
func (m *Manager) Import(dir string) (int, error) {
	m.mu.Lock()
	entries := append([]Tracked(nil), m.entries...)
	m.mu.Unlock()

	changed := 0
	for i, e := range entries {
		m.SetProgress("Importing "+e.Name(), float64(i)/float64(len(entries)))
		ok, err := e.Import(dir)
		if err != nil {
			return changed, err
		}
		if ok {
			log.Debug("%s: %s changed on disk", m.description, e.Name())
			changed++
		}
	}
	m.SetProgress("Done", 1)
	return changed, nil
}

// SetProgress records what the manager is doing.
func (m *Manager) SetProgress(status string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status, m.progress = status, progress
}

// Progress returns the last recorded status.
func (m *Manager) Progress() (string, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.progress
}

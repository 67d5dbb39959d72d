package datamgr

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/rom"
)

type words struct {
	v []uint16
}

type countingSerialiser struct {
	encodes int
}

func (c *countingSerialiser) Encode(w *words) ([]byte, error) {
	c.encodes++
	out := make([]byte, 0, len(w.v)*2)
	for _, x := range w.v {
		if x == 0xFFFF {
			return nil, codec.Capacity("words", codec.ErrBadParameter, "reserved value")
		}
		out = binary.BigEndian.AppendUint16(out, x)
	}
	return out, nil
}

func (c *countingSerialiser) Decode(b []byte) (*words, error) {
	if len(b)%2 != 0 {
		return nil, codec.Malformed("words", codec.ErrBufferUnderrun, "odd length")
	}
	w := &words{}
	for i := 0; i < len(b); i += 2 {
		w.v = append(w.v, binary.BigEndian.Uint16(b[i:]))
	}
	return w, nil
}

func (c *countingSerialiser) Equal(a, b *words) bool {
	if len(a.v) != len(b.v) {
		return false
	}
	for i := range a.v {
		if a.v[i] != b.v[i] {
			return false
		}
	}
	return true
}

func newTestEntry(t *testing.T, raw []byte) (*Entry[*words], *countingSerialiser) {
	ser := &countingSerialiser{}
	e := NewEntry[*words]("Words", "data/words.bin", raw, ser)
	require.NoError(t, e.Initialise())
	return e, ser
}

func TestEntry_Lifecycle(t *testing.T) {
	ser := &countingSerialiser{}
	e := NewEntry[*words]("Words", "words.bin", []byte{0, 1, 0, 2}, ser)
	assert.Equal(t, Uninitialised, e.State())
	assert.False(t, e.HasDataChanged())

	require.NoError(t, e.Initialise())
	assert.Equal(t, Initialised, e.State())
	assert.Equal(t, []uint16{1, 2}, e.Data().v)

	e.Data().v[0] = 9
	assert.Equal(t, Modified, e.State())
	assert.True(t, e.HasDataChanged())
	assert.True(t, e.HasSavedDataChanged())
	assert.Equal(t, []uint16{1, 2}, e.OrigData().v)

	require.NoError(t, e.Commit())
	assert.Equal(t, Committed, e.State())
	assert.True(t, e.HasDataChanged())
	assert.False(t, e.HasSavedDataChanged())
	assert.Equal(t, []byte{0, 1, 0, 2}, e.OrigBytes())

	b, err := e.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 9, 0, 2}, b)

	e.Data().v = append(e.Data().v, 3)
	require.NoError(t, e.AbandonChanges())
	assert.Equal(t, []uint16{9, 2}, e.Data().v)
	assert.Equal(t, Committed, e.State())
}

func TestEntry_BytesCachedWhileUnmodified(t *testing.T) {
	e, ser := newTestEntry(t, []byte{0x12, 0x34})
	a, err := e.Bytes()
	require.NoError(t, err)
	b, err := e.Bytes()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 0, ser.encodes)

	e.SetData(&words{v: []uint16{0x1234, 0x5678}})
	n, err := e.DataLength()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, e.OrigDataLength())

	e.SetStartAddress(0x1000)
	end, err := e.EndAddress()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1004), end)
	assert.Equal(t, uint32(0x1002), e.OrigEndAddress())
}

func TestEntry_BytesAreCopies(t *testing.T) {
	e, _ := newTestEntry(t, []byte{0x12, 0x34})
	b, err := e.Bytes()
	require.NoError(t, err)
	b[0] = 0xFF
	e.OrigBytes()[1] = 0xFF

	again, err := e.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34}, again)
	assert.Equal(t, []byte{0x12, 0x34}, e.OrigBytes())
	assert.Equal(t, Initialised, e.State())
}

func TestEntry_Clone(t *testing.T) {
	e, _ := newTestEntry(t, []byte{0, 1, 0, 2})
	e.Data().v[1] = 5

	c, err := e.Clone()
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 5}, c.v)
	c.v[0] = 9
	assert.Equal(t, []uint16{1, 5}, e.Data().v)

	e.Data().v[0] = 0xFFFF
	_, err = e.Clone()
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))
}

func TestEntry_Errors(t *testing.T) {
	e := NewEntry[*words]("Odd", "odd.bin", []byte{1}, &countingSerialiser{})
	err := e.Initialise()
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))

	e2, _ := newTestEntry(t, []byte{0, 1})
	e2.Data().v[0] = 0xFFFF
	assert.Equal(t, codec.KindCapacity, codec.KindOf(e2.Commit()))
	_, err = e2.Bytes()
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))
}

func TestEntry_Save(t *testing.T) {
	dir := t.TempDir()
	e, _ := newTestEntry(t, []byte{0, 1})
	e.Data().v[0] = 7
	require.NoError(t, e.Save(dir))
	got, err := os.ReadFile(filepath.Join(dir, "data", "words.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 7}, got)
}

func TestEntry_SetBytes(t *testing.T) {
	e, _ := newTestEntry(t, []byte{0, 1})
	require.NoError(t, e.SetBytes([]byte{0, 3, 0, 4}))
	assert.Equal(t, []uint16{3, 4}, e.Data().v)
	assert.Equal(t, Modified, e.State())

	err := e.SetBytes([]byte{1})
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
	assert.Equal(t, []uint16{3, 4}, e.Data().v)
}

func TestEntry_Import(t *testing.T) {
	dir := t.TempDir()
	e, _ := newTestEntry(t, []byte{0, 1})

	changed, err := e.Import(dir)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, e.Save(dir))
	changed, err = e.Import(dir)
	require.NoError(t, err)
	assert.False(t, changed)

	path := filepath.Join(dir, "data", "words.bin")
	require.NoError(t, os.WriteFile(path, []byte{0, 9}, 0o644))
	changed, err = e.Import(dir)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []uint16{9}, e.Data().v)

	require.NoError(t, os.WriteFile(path, []byte{0, 9, 1}, 0o644))
	_, err = e.Import(dir)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}

type fakeTarget struct {
	data     []byte
	sections map[string]rom.Section
	address  map[string]uint32
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		data:     make([]byte, 0x40),
		sections: map[string]rom.Section{"Table": {Begin: 0x10, End: 0x14}},
		address:  map[string]uint32{"TablePtr": 0x00},
	}
}

func (f *fakeTarget) SectionExists(name string) bool { _, ok := f.sections[name]; return ok }
func (f *fakeTarget) AddressExists(name string) bool { _, ok := f.address[name]; return ok }

func (f *fakeTarget) Section(name string) (rom.Section, error) {
	s, ok := f.sections[name]
	if !ok {
		return rom.Section{}, codec.Config("section", codec.ErrUnknownSection, "%s", name)
	}
	return s, nil
}

func (f *fakeTarget) Address(name string) (uint32, error) {
	a, ok := f.address[name]
	if !ok {
		return 0, codec.Config("address", codec.ErrUnknownAddress, "%s", name)
	}
	return a, nil
}

func (f *fakeTarget) WriteBytes(addr uint32, b []byte) error {
	copy(f.data[addr:], b)
	return nil
}

func TestManager_Inject(t *testing.T) {
	m := NewManager("words")
	e, _ := newTestEntry(t, []byte{0, 1})
	m.Track(e)
	hooked := 0
	m.OnCommit(func() error { hooked++; return nil })

	e.Data().v[0] = 5
	assert.True(t, m.HasBeenModified())

	b, err := e.Bytes()
	require.NoError(t, err)
	m.AddPendingWrite("Table", b)
	m.AddPendingWrite("TablePtr", []byte{0, 0, 0, 0x10})

	target := newFakeTarget()
	ok, err := m.WillFitInRom(target)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.InjectIntoRom(target))
	assert.Equal(t, []byte{0, 5}, target.data[0x10:0x12])
	assert.Equal(t, []byte{0, 0, 0, 0x10}, target.data[0:4])
	assert.Empty(t, m.PendingWrites())
	assert.False(t, m.HasBeenModified())
	assert.Equal(t, Committed, e.State())
	assert.Equal(t, 1, hooked)
}

func TestManager_WillFitInRom(t *testing.T) {
	target := newFakeTarget()

	m := NewManager("words")
	m.AddPendingWrite("Table", make([]byte, 5))
	ok, err := m.WillFitInRom(target)
	require.NoError(t, err)
	assert.False(t, ok)

	m.AbandonRomInjection()
	m.AddPendingWrite("TablePtr", make([]byte, 6))
	ok, err = m.WillFitInRom(target)
	require.NoError(t, err)
	assert.False(t, ok)

	m.ClearPendingWrites()
	m.AddPendingWrite("Elsewhere", []byte{1})
	_, err = m.WillFitInRom(target)
	assert.Equal(t, codec.KindConfig, codec.KindOf(err))
	err = m.InjectIntoRom(target)
	assert.True(t, errors.Is(err, codec.ErrUnknownSection))
}

func TestManager_Save(t *testing.T) {
	dir := t.TempDir()
	m := NewManager("words")
	e, _ := newTestEntry(t, []byte{0, 1})
	m.Track(e)
	e.Data().v[0] = 2

	require.NoError(t, m.Save(dir))
	status, progress := m.Progress()
	assert.Equal(t, "Done", status)
	assert.Equal(t, 1.0, progress)
	assert.False(t, m.HasBeenModified())

	got, err := os.ReadFile(filepath.Join(dir, "data", "words.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 2}, got)
}

func TestManager_Import(t *testing.T) {
	dir := t.TempDir()
	m := NewManager("words")
	a, _ := newTestEntry(t, []byte{0, 1})
	m.Track(a)
	require.NoError(t, m.Save(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "words.bin"), []byte{0, 5}, 0o644))

	n, err := m.Import(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, m.HasBeenModified())

	n, err = m.Import(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFuncs(t *testing.T) {
	ser := Funcs[string]{
		EncodeFn: func(s string) ([]byte, error) { return []byte(s), nil },
		DecodeFn: func(b []byte) (string, error) { return string(b), nil },
		EqualFn:  func(a, b string) bool { return a == b },
	}
	e := NewEntry[string]("s", "s.txt", []byte("abc"), ser)
	require.NoError(t, e.Initialise())
	e.SetData("abcd")
	b, err := e.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), b)
	assert.Equal(t, "modified", e.State().String())
}

// Package rom wraps a Landstalker cartridge image: header validation,
// checksum, region detection and access to named addresses and sections.
package rom

import (
	"bytes"
	"encoding/binary"
	"os"
	"strings"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
)

var log = logging.For("rom")

const headerBegin = 0x100

// Header is the standard cartridge header at 0x100.
type Header struct {
	System        [16]byte
	Copyright     [16]byte
	DomesticName  [48]byte
	OverseasName  [48]byte
	Serial        [14]byte
	Checksum      uint16
	IOSupport     [16]byte
	RomStart      uint32
	RomEnd        uint32
	RamStart      uint32
	RamEnd        uint32
	ExtraMemory   [12]byte
	Modem         [12]byte
	Reserved1     [40]byte
	RegionSupport [3]byte
	Reserved2     [13]byte
}

// HeaderSize is the size of the cartridge header.
const HeaderSize = 0x100

// Title returns the overseas name with space and NUL padding removed.
func (h *Header) Title() string {
	name := strings.ReplaceAll(string(h.OverseasName[:]), "\x00", " ")
	return strings.Join(strings.Fields(name), " ")
}

// Rom is an in memory cartridge image.
type Rom struct {
	data    []byte
	region  Region
	offsets *Offsets
}

// New wraps an image using the built in offsets table.
func New(data []byte) (*Rom, error) {
	return NewWithOffsets(data, DefaultOffsets())
}

// NewWithOffsets wraps an image using a custom offsets table.
func NewWithOffsets(data []byte, o *Offsets) (*Rom, error) {
	if len(data) < o.ExpectedSize {
		return nil, codec.Malformed("rom", codec.ErrBufferUnderrun,
			"image is 0x%X bytes, expected at least 0x%X", len(data), o.ExpectedSize)
	}
	r := &Rom{data: data, offsets: o}
	r.region = r.detectRegion()
	if stored, sum := r.StoredChecksum(), r.Checksum(); stored != sum {
		log.Debug("checksum mismatch: header 0x%04X, computed 0x%04X", stored, sum)
	}
	return r, nil
}

// Load reads an image from disk.
func Load(path string) (*Rom, error) {
	return LoadWithOffsets(path, DefaultOffsets())
}

// LoadWithOffsets reads an image from disk using a custom offsets table.
func LoadWithOffsets(path string, o *Offsets) (*Rom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	r, err := NewWithOffsets(data, o)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return r, nil
}

// Save writes the image to disk.
func (r *Rom) Save(path string) error {
	return errors.Wrapf(os.WriteFile(path, r.data, 0o644), "save %s", path)
}

func (r *Rom) detectRegion() Region {
	o := r.offsets
	raw := r.data[o.BuildDateBegin : int(o.BuildDateBegin)+o.BuildDateLength]
	date := string(raw)
	region, ok := o.RegionForBuildDate(date)
	if !ok {
		log.Info("unknown build date %q, assuming %s", date, RegionUS)
	}
	return region
}

// Data returns the image. Writes to the slice are writes to the ROM.
func (r *Rom) Data() []byte {
	return r.data
}

// Size is the image size in bytes.
func (r *Rom) Size() int {
	return len(r.data)
}

// Region is the release detected from the build date.
func (r *Rom) Region() Region {
	return r.region
}

// SetRegion overrides the detected release.
func (r *Rom) SetRegion(region Region) {
	r.region = region
}

// RegionName is the display name of the detected release.
func (r *Rom) RegionName() string {
	return r.offsets.RegionName(r.region)
}

// Offsets is the table the image was opened with.
func (r *Rom) Offsets() *Offsets {
	return r.offsets
}

// Header decodes the cartridge header.
func (r *Rom) Header() (*Header, error) {
	var h Header
	if err := restruct.Unpack(r.data[headerBegin:headerBegin+HeaderSize], binary.BigEndian, &h); err != nil {
		return nil, codec.Malformed("rom header", err, "unpack")
	}
	return &h, nil
}

// Checksum computes the additive checksum of every word from the checksum
// start to the expected end of the image.
func (r *Rom) Checksum() uint16 {
	var sum uint16
	end := r.offsets.ExpectedSize
	for i := int(r.offsets.ChecksumBegin); i+1 < end; i += 2 {
		sum += binary.BigEndian.Uint16(r.data[i:])
	}
	return sum
}

// StoredChecksum is the checksum recorded in the header.
func (r *Rom) StoredChecksum() uint16 {
	return binary.BigEndian.Uint16(r.data[r.offsets.ChecksumAddress:])
}

// FixChecksum stores the computed checksum in the header and returns it.
func (r *Rom) FixChecksum() uint16 {
	sum := r.Checksum()
	binary.BigEndian.PutUint16(r.data[r.offsets.ChecksumAddress:], sum)
	return sum
}

func (r *Rom) span(op string, addr uint32, n int) error {
	if n < 0 || int(addr)+n > len(r.data) {
		return codec.Malformed(op, codec.ErrBufferUnderrun, "0x%06X+%d beyond image end 0x%06X", addr, n, len(r.data))
	}
	return nil
}

// Read8 reads a byte.
func (r *Rom) Read8(addr uint32) (uint8, error) {
	if err := r.span("read8", addr, 1); err != nil {
		return 0, err
	}
	return r.data[addr], nil
}

// Read16 reads a big endian word.
func (r *Rom) Read16(addr uint32) (uint16, error) {
	if err := r.span("read16", addr, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.data[addr:]), nil
}

// Read32 reads a big endian long.
func (r *Rom) Read32(addr uint32) (uint32, error) {
	if err := r.span("read32", addr, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.data[addr:]), nil
}

// ReadBytes returns a copy of n bytes.
func (r *Rom) ReadBytes(addr uint32, n int) ([]byte, error) {
	if err := r.span("read", addr, n); err != nil {
		return nil, err
	}
	return append([]byte(nil), r.data[addr:int(addr)+n]...), nil
}

// WriteBytes overwrites the image at addr.
func (r *Rom) WriteBytes(addr uint32, b []byte) error {
	if int(addr)+len(b) > len(r.data) {
		return codec.Capacity("write", codec.ErrBufferOverrun, "0x%06X+%d beyond image end", addr, len(b))
	}
	copy(r.data[addr:], b)
	return nil
}

// Write8 writes a byte.
func (r *Rom) Write8(addr uint32, v uint8) error {
	return r.WriteBytes(addr, []byte{v})
}

// Write16 writes a big endian word.
func (r *Rom) Write16(addr uint32, v uint16) error {
	return r.WriteBytes(addr, binary.BigEndian.AppendUint16(nil, v))
}

// Write32 writes a big endian long.
func (r *Rom) Write32(addr uint32, v uint32) error {
	return r.WriteBytes(addr, binary.BigEndian.AppendUint32(nil, v))
}

// ReadString reads a NUL terminated string.
func (r *Rom) ReadString(addr uint32) (string, error) {
	if err := r.span("read string", addr, 1); err != nil {
		return "", err
	}
	end := bytes.IndexByte(r.data[addr:], 0)
	if end < 0 {
		return "", codec.Malformed("read string", codec.ErrBufferUnderrun, "no terminator after 0x%06X", addr)
	}
	return string(r.data[addr : int(addr)+end]), nil
}

// WriteString writes s followed by a NUL.
func (r *Rom) WriteString(addr uint32, s string) error {
	return r.WriteBytes(addr, append([]byte(s), 0))
}

// Address returns a named address for the detected region.
func (r *Rom) Address(name string) (uint32, error) {
	return r.offsets.Address(name, r.region)
}

// AddressExists reports whether a named address is known for this image.
func (r *Rom) AddressExists(name string) bool {
	return r.offsets.AddressExists(name, r.region)
}

// Section returns a named section for the detected region.
func (r *Rom) Section(name string) (Section, error) {
	return r.offsets.Section(name, r.region)
}

// SectionExists reports whether a named section is known for this image.
func (r *Rom) SectionExists(name string) bool {
	return r.offsets.SectionExists(name, r.region)
}

// ReadSection returns a copy of a named section.
func (r *Rom) ReadSection(name string) ([]byte, error) {
	s, err := r.Section(name)
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(s.Begin, s.Size())
}

// ReadPointer reads the 32-bit value stored at a named address.
func (r *Rom) ReadPointer(name string) (uint32, error) {
	a, err := r.Address(name)
	if err != nil {
		return 0, err
	}
	return r.Read32(a)
}

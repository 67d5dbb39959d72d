package rom

import (
	_ "embed"
	"io"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rcarmo/landstalker/internal/codec"
)

//go:embed offsets.yaml
var defaultOffsets []byte

// Region identifies one of the known releases.
type Region int

const (
	RegionJP Region = iota
	RegionUS
	RegionUK
	RegionFR
	RegionDE
	RegionUSBeta
)

var regionKeys = [...]string{"JP", "US", "UK", "FR", "DE", "US_BETA"}

func (r Region) String() string {
	if r >= 0 && int(r) < len(regionKeys) {
		return regionKeys[r]
	}
	return "unknown"
}

// ParseRegion is the inverse of Region.String.
func ParseRegion(s string) (Region, error) {
	for i, k := range regionKeys {
		if k == s {
			return Region(i), nil
		}
	}
	return RegionUS, codec.Config("region", nil, "unknown region %q", s)
}

// Section is a half open byte range [Begin, End).
type Section struct {
	Begin uint32
	End   uint32
}

// Size is the number of bytes in the section.
func (s Section) Size() int {
	return int(s.End) - int(s.Begin)
}

// Contains reports whether addr lies inside the section.
func (s Section) Contains(addr uint32) bool {
	return addr >= s.Begin && addr < s.End
}

type regionInfo struct {
	Name      string `yaml:"name"`
	BuildDate string `yaml:"build_date"`
}

// Offsets is the table of named addresses and sections for every region,
// together with the header layout used to validate an image.
type Offsets struct {
	ChecksumAddress uint32                         `yaml:"checksum_address"`
	ChecksumBegin   uint32                         `yaml:"checksum_begin"`
	BuildDateBegin  uint32                         `yaml:"build_date_begin"`
	BuildDateLength int                            `yaml:"build_date_length"`
	ExpectedSize    int                            `yaml:"expected_size"`
	Regions         map[string]regionInfo          `yaml:"regions"`
	Addresses       map[string]map[string]uint32   `yaml:"addresses"`
	Sections        map[string]map[string][]uint32 `yaml:"sections"`
}

// DefaultOffsets returns the built in table.
func DefaultOffsets() *Offsets {
	o, err := parseOffsets(defaultOffsets)
	if err != nil {
		// The embedded file is part of the build.
		panic(err)
	}
	return o
}

// LoadOffsets reads a replacement table, for hacks that move data around.
func LoadOffsets(r io.Reader) (*Offsets, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read offsets")
	}
	return parseOffsets(src)
}

func parseOffsets(src []byte) (*Offsets, error) {
	var o Offsets
	if err := yaml.Unmarshal(src, &o); err != nil {
		return nil, codec.Malformed("offsets", err, "parse")
	}
	for name, regions := range o.Sections {
		for region, r := range regions {
			if len(r) != 2 || r[1] < r[0] {
				return nil, codec.Malformed("offsets", nil, "section %s for %s must be [begin, end]", name, region)
			}
		}
	}
	if o.BuildDateLength <= 0 || o.ExpectedSize <= 0 {
		return nil, codec.Malformed("offsets", nil, "missing header layout")
	}
	return &o, nil
}

// RegionName is the display name of a region.
func (o *Offsets) RegionName(r Region) string {
	if info, ok := o.Regions[r.String()]; ok {
		return info.Name
	}
	return r.String()
}

// RegionForBuildDate looks a build date up in the region table.
func (o *Offsets) RegionForBuildDate(date string) (Region, bool) {
	for key, info := range o.Regions {
		if info.BuildDate == date {
			if r, err := ParseRegion(key); err == nil {
				return r, true
			}
		}
	}
	return RegionUS, false
}

// Address returns a named address for a region.
func (o *Offsets) Address(name string, r Region) (uint32, error) {
	a, ok := o.Addresses[name][r.String()]
	if !ok {
		return 0, codec.Config("address", codec.ErrUnknownAddress, "%s (%s)", name, r)
	}
	return a, nil
}

// AddressExists reports whether a named address is known for a region.
func (o *Offsets) AddressExists(name string, r Region) bool {
	_, ok := o.Addresses[name][r.String()]
	return ok
}

// Section returns a named section for a region.
func (o *Offsets) Section(name string, r Region) (Section, error) {
	s, ok := o.Sections[name][r.String()]
	if !ok {
		return Section{}, codec.Config("section", codec.ErrUnknownSection, "%s (%s)", name, r)
	}
	return Section{Begin: s[0], End: s[1]}, nil
}

// SectionExists reports whether a named section is known for a region.
func (o *Offsets) SectionExists(name string, r Region) bool {
	_, ok := o.Sections[name][r.String()]
	return ok
}

// SectionNames lists every section, sorted.
func (o *Offsets) SectionNames() []string {
	names := make([]string, 0, len(o.Sections))
	for n := range o.Sections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Package labels maps numeric game ids to human readable names, grouped by
// category. A Set is immutable once built: updates return a new Set, so one
// Set can be shared by every component that resolves names.
package labels

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rcarmo/landstalker/internal/logging"
)

var log = logging.For("labels")

// Known categories.
const (
	Rooms            = "rooms"
	Maps             = "maps"
	Entities         = "entities"
	Characters       = "characters"
	GlobalCharacters = "global_characters"
	Tilesets         = "tilesets"
	AnimTilesets     = "anim_tilesets"
	RoomPalettes     = "room_palettes"
	Sprites          = "sprites"
	SpriteAnimations = "sprite_animations"
	SpriteFrames     = "sprite_frames"
	LowPalettes      = "low_palettes"
	HighPalettes     = "high_palettes"
	Behaviours       = "behaviours"
	Sounds           = "sounds"
	Flags            = "flags"
	Cutscenes        = "cutscenes"
)

//go:embed defaults.yaml
var defaultLabels []byte

// ErrDuplicate is returned when a label is already used by another id.
var ErrDuplicate = errors.New("duplicate label")

type key struct {
	category string
	id       int
}

// Set is an immutable collection of labels.
type Set struct {
	data map[key]string
}

// Default returns the built in labels.
func Default() *Set {
	s := &Set{data: make(map[key]string)}
	if err := s.merge(defaultLabels); err != nil {
		// The embedded file is part of the build.
		panic(err)
	}
	return s
}

// Load returns the defaults overlaid with the labels read from r. Entries
// that fail to parse are logged and skipped, category by category.
func Load(r io.Reader) (*Set, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read labels")
	}
	s := Default()
	if err := s.merge(src); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads a labels file. An empty path yields the defaults.
func LoadFile(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open labels %s", path)
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "labels %s", path)
	}
	log.Info("loaded %d labels from %s", s.Len(), path)
	return s, nil
}

func (s *Set) merge(src []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return errors.Wrap(err, "parse labels")
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return errors.Errorf("labels: expected a mapping of categories, got line %d", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		category := root.Content[i].Value
		entries := root.Content[i+1]
		if entries.Kind != yaml.MappingNode {
			log.Debug("labels: category %q at line %d is not a mapping", category, entries.Line)
			continue
		}
		parsed := make(map[int]string, len(entries.Content)/2)
		bad := false
		for j := 0; j+1 < len(entries.Content); j += 2 {
			var id int
			var text string
			if err := entries.Content[j].Decode(&id); err != nil {
				log.Debug("labels: %s line %d: %v", category, entries.Content[j].Line, err)
				bad = true
				break
			}
			if err := entries.Content[j+1].Decode(&text); err != nil {
				log.Debug("labels: %s line %d: %v", category, entries.Content[j+1].Line, err)
				bad = true
				break
			}
			parsed[id] = text
		}
		if bad {
			continue
		}
		for id, text := range parsed {
			s.data[key{category, id}] = text
		}
	}
	return nil
}

// Len is the number of labels.
func (s *Set) Len() int {
	return len(s.data)
}

// Get returns the label of an id.
func (s *Set) Get(category string, id int) (string, bool) {
	v, ok := s.data[key{category, id}]
	return v, ok
}

// GetOr returns the label of an id, or fallback formatted with the id.
func (s *Set) GetOr(category string, id int, fallback string) string {
	if v, ok := s.Get(category, id); ok {
		return v
	}
	return fmt.Sprintf(fallback, id)
}

// Exists reports whether an id has a label.
func (s *Set) Exists(category string, id int) bool {
	_, ok := s.data[key{category, id}]
	return ok
}

// With returns a copy of the set with one label changed. A label already
// used by any other entry is refused with ErrDuplicate.
func (s *Set) With(category string, id int, text string) (*Set, error) {
	k := key{category, id}
	if cur, ok := s.data[k]; ok && cur == text {
		return s, nil
	}
	for other, v := range s.data {
		if v == text && other != k {
			return nil, errors.Wrapf(ErrDuplicate, "%q already names %s %d", text, other.category, other.id)
		}
	}
	out := &Set{data: make(map[key]string, len(s.data)+1)}
	for k, v := range s.data {
		out.data[k] = v
	}
	out.data[k] = text
	return out, nil
}

// Categories lists the categories that hold labels, sorted.
func (s *Set) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for k := range s.data {
		if !seen[k.category] {
			seen[k.category] = true
			out = append(out, k.category)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Set) ids(category string) []int {
	var ids []int
	for k := range s.data {
		if k.category == category {
			ids = append(ids, k.id)
		}
	}
	sort.Ints(ids)
	return ids
}

// MarshalYAML writes categories and ids in ascending order with quoted
// labels.
func (s *Set) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, category := range s.Categories() {
		entries := &yaml.Node{Kind: yaml.MappingNode}
		for _, id := range s.ids(category) {
			entries.Content = append(entries.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(id)},
				&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: s.data[key{category, id}]},
			)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: category},
			entries,
		)
	}
	return root, nil
}

// Save writes the set as a labels file.
func (s *Set) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(4)
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "write labels")
	}
	return enc.Close()
}

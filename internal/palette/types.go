package palette

import "fmt"

// Type identifies which CRAM entries a stored palette covers.
type Type int

const (
	TypeNone Type = iota
	TypeFull
	TypeLow8
	TypeRoom
	TypeHUD
	TypeSpriteLow
	TypeSpriteHigh
	TypeSpriteFull
	TypeProjectile
	TypeProjectile2
	TypeSword
	TypeArmour
	TypeLava
	TypeWarp
	TypeSegaLogo
	TypeClimaxLogo
	TypeTitleYellow
	TypeTitleSingleColour
	TypeTitleBlueFade
	TypeEndCredits
)

// Entries is the size of a full hardware palette line.
const Entries = 16

// varWidth marks a type stored as a count followed by that many colours.
const varWidth = -1

type typeInfo struct {
	name   string
	size   int
	locked [Entries]bool
}

// y marks a locked entry, n one the palette supplies.
const (
	y = true
	n = false
)

var types = map[Type]typeInfo{
	TypeNone:              {"none", 0, [Entries]bool{y, y, y, y, y, y, y, y, y, y, y, y, y, y, y, y}},
	TypeFull:              {"full", 16, [Entries]bool{n, n, n, n, n, n, n, n, n, n, n, n, n, n, n, n}},
	TypeLow8:              {"low8", 8, [Entries]bool{n, n, n, n, n, n, n, n, y, y, y, y, y, y, y, y}},
	TypeRoom:              {"room", 13, [Entries]bool{y, y, n, n, n, n, n, n, n, n, n, n, n, n, n, y}},
	TypeHUD:               {"hud", 5, [Entries]bool{y, y, y, y, y, y, y, y, y, y, n, n, n, n, n, y}},
	TypeSpriteLow:         {"sprite_low", 6, [Entries]bool{y, y, n, n, n, n, n, n, y, y, y, y, y, y, y, y}},
	TypeSpriteHigh:        {"sprite_high", 7, [Entries]bool{y, y, y, y, y, y, y, y, n, n, n, n, n, n, n, y}},
	TypeSpriteFull:        {"sprite_full", 13, [Entries]bool{y, y, n, n, n, n, n, n, n, n, n, n, n, n, n, y}},
	TypeProjectile:        {"projectile", 2, [Entries]bool{y, y, y, y, y, y, y, y, n, n, y, y, y, y, y, y}},
	TypeProjectile2:       {"projectile2", 4, [Entries]bool{y, y, y, y, n, n, n, n, y, y, y, y, y, y, y, y}},
	TypeSword:             {"sword", 2, [Entries]bool{y, y, y, y, y, y, y, y, y, y, y, y, y, n, n, y}},
	TypeArmour:            {"armour", 2, [Entries]bool{y, y, y, y, y, y, y, y, y, y, y, n, n, y, y, y}},
	TypeLava:              {"lava", 2, [Entries]bool{y, y, y, y, y, y, y, y, n, n, y, y, y, y, y, y}},
	TypeWarp:              {"warp", 2, [Entries]bool{y, y, y, y, y, y, y, y, y, y, y, y, y, n, n, y}},
	TypeSegaLogo:          {"sega_logo", 7, [Entries]bool{n, n, n, n, n, n, n, y, y, y, y, y, y, y, y, y}},
	TypeClimaxLogo:        {"climax_logo", 4, [Entries]bool{n, n, n, n, y, y, y, y, y, y, y, y, y, y, y, y}},
	TypeTitleYellow:       {"title_yellow", 5, [Entries]bool{y, n, n, n, n, n, y, y, y, y, y, y, y, y, y, y}},
	TypeTitleSingleColour: {"title_single_colour", 1, [Entries]bool{y, n, y, y, y, y, y, y, y, y, y, y, y, y, y, y}},
	TypeTitleBlueFade:     {"title_blue_fade", varWidth, [Entries]bool{}},
	TypeEndCredits:        {"end_credits", 4, [Entries]bool{n, n, n, n, y, y, y, y, y, y, y, y, y, y, y, y}},
}

func (ty Type) info() typeInfo {
	if i, ok := types[ty]; ok {
		return i
	}
	return types[TypeNone]
}

func (ty Type) String() string {
	if i, ok := types[ty]; ok {
		return i.name
	}
	return fmt.Sprintf("type(%d)", int(ty))
}

// ParseType looks a type up by its String name.
func ParseType(name string) (Type, bool) {
	for ty, i := range types {
		if i.name == name {
			return ty, true
		}
	}
	return TypeNone, false
}

// IsVarWidth reports whether the type is stored with a leading count.
func (ty Type) IsVarWidth() bool {
	return ty.info().size == varWidth
}

// Size returns the number of stored colours, or 0 for variable width types.
func (ty Type) Size() int {
	if ty.IsVarWidth() {
		return 0
	}
	return ty.info().size
}

// SizeBytes returns the stored size of a fixed width palette.
func (ty Type) SizeBytes() int {
	return ty.Size() * 2
}

// Locked returns which of the 16 hardware entries the type leaves alone.
func (ty Type) Locked() [Entries]bool {
	return ty.info().locked
}

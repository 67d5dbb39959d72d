package gamedata

import (
	"bytes"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/rooms"
	"github.com/rcarmo/landstalker/internal/sprite"
)

const (
	spriteGfxSection = "SpriteGfxPtr"
	spriteGfxPtrPtr  = "SpriteGfxPtrPtr"

	spriteDataSection = "SpriteDataSection"
	spriteTableAddr   = "RoomSpriteTable"
	visibilityLea     = "SpriteVisibilityFlags"
	oneTimeEventLea   = "OneTimeEventFlags"
	roomClearLea      = "RoomClearFlags"
	lockedDoorLea     = "LockedDoorSpriteFlags"
	switchLea         = "PermanentSwitchFlags"
	sacredTreeLea     = "SacredTreeFlags"
	gfxLookupLea      = "SpriteGfxIdxLookup"
	dimensionsLea     = "SpriteDimensionsLookup"
	entityOffsetsLea  = "RoomSpriteTableOffset"
	enemyStatsLea     = "EnemyStats"

	scriptSection       = "Script"
	progressFlagSection = "ScriptProgressFlags"
)

// Further lea instructions that address a table already listed.
var spriteLeaAliases = map[string]string{
	"LockedDoorSpriteFlagsLea2": lockedDoorLea,
	"LockedDoorSpriteFlagsLea3": lockedDoorLea,
	"SacredTreeFlagsLea2":       sacredTreeLea,
}

// spriteDataLeas lists the tables of the sprite data section in stored order.
var spriteDataLeas = []string{
	visibilityLea, oneTimeEventLea, roomClearLea, lockedDoorLea, switchLea, sacredTreeLea,
	gfxLookupLea, dimensionsLea, entityOffsetsLea, enemyStatsLea,
}

func (g *GameData) loadSpriteGraphics(r *rom.Rom) error {
	if missing(r, []string{spriteGfxSection}, []string{spriteGfxPtrPtr}) {
		return nil
	}
	if _, ok, err := pointers(r, spriteGfxPtrPtr); err != nil || !ok {
		return err
	}
	sec, err := r.Section(spriteGfxSection)
	if err != nil {
		return err
	}
	data, err := r.ReadSection(spriteGfxSection)
	if err != nil {
		return err
	}
	layout, frames, err := sprite.UnpackGraphics(data, sec.Begin)
	if err != nil {
		return err
	}
	doc, err := layout.Bytes()
	if err != nil {
		return err
	}
	lh, err := g.AddSpriteLayout("SpriteLayout", "graphics/sprites/layout.yaml", doc)
	if err != nil {
		return err
	}
	type loaded struct {
		sprite int
		h      Handle[*sprite.Frame]
	}
	hs := make([]loaded, len(frames))
	for i, f := range frames {
		h, err := g.AddSpriteFrame(f.Name, "graphics/sprites/frames/"+f.Name+".frm", f.Data)
		if err != nil {
			return err
		}
		hs[i] = loaded{f.Sprite, h}
	}

	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		layout, err := g.SpriteLayouts.Get(lh)
		if err != nil {
			return err
		}
		frames := make([]sprite.FrameData, len(hs))
		for i, l := range hs {
			name, err := g.SpriteFrames.Name(l.h)
			if err != nil {
				return err
			}
			b, err := g.SpriteFrames.Bytes(l.h)
			if err != nil {
				return err
			}
			frames[i] = sprite.FrameData{Name: name, Sprite: l.sprite, Data: b}
		}
		sec, err := r.Section(spriteGfxSection)
		if err != nil {
			return err
		}
		b, err := sprite.PackGraphics(layout, frames, sec.Begin)
		if err != nil {
			return err
		}
		g.sprites.AddPendingWrite(spriteGfxSection, b)
		return nil
	})
	return nil
}

// loadSpriteData reads the entity flag lists, the graphics and size lookups,
// the enemy stats and the per room entity lists.
func (g *GameData) loadSpriteData(r *rom.Rom) error {
	const op = "load sprite data"
	if missing(r, []string{spriteDataSection}, append([]string{spriteTableAddr}, spriteDataLeas...)) {
		return nil
	}
	targets, ok, err := leaTargets(r, spriteDataLeas...)
	if err != nil || !ok {
		return err
	}
	ptrs, ok, err := pointers(r, spriteTableAddr)
	if err != nil || !ok {
		return err
	}
	sec, err := r.Section(spriteDataSection)
	if err != nil {
		return err
	}
	bounds := append(targets, ptrs[0], sec.End)
	parts := make([][]byte, len(bounds)-1)
	for i := range parts {
		if !sec.Contains(bounds[i]) {
			return codec.Malformed(op, codec.ErrInconsistent, "table %d at 0x%06X is outside %s", i, bounds[i], spriteDataSection)
		}
		if parts[i], err = readSpan(r, "sprite data", bounds[i], bounds[i+1]); err != nil {
			return err
		}
	}
	flags, err := rooms.DecodeSpriteFlags(parts[:rooms.SpriteFlagTables])
	if err != nil {
		return err
	}
	fh, err := g.AddSpriteFlags("SpriteFlags", "spritedata/flags.bin", flags.Bytes())
	if err != nil {
		return err
	}
	lut, err := g.AddSpriteTable("SpriteGfxLookup", "spritedata/gfx_lookup.bin", parts[6])
	if err != nil {
		return err
	}
	dims, err := g.AddSpriteTable("SpriteDimensions", "spritedata/dimensions.bin", parts[7])
	if err != nil {
		return err
	}
	stats, err := g.AddSpriteTable("EnemyStats", "spritedata/enemy_stats.bin", parts[9])
	if err != nil {
		return err
	}
	offsets := parts[8][:len(parts[8])&^1]
	count := len(offsets) / 2
	eh, err := g.AddEntities("RoomEntities", "spritedata/entities.bin", append(offsets, parts[10]...), count)
	if err != nil {
		return err
	}

	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		flags, err := g.SpriteFlags.Get(fh)
		if err != nil {
			return err
		}
		entities, err := g.Entities.Get(eh)
		if err != nil {
			return err
		}
		offsets, table, err := entities.Bytes(count)
		if err != nil {
			return err
		}
		var blobs [][]byte
		for _, h := range []Handle[[]byte]{lut, dims, stats} {
			b, err := g.SpriteTables.Bytes(h)
			if err != nil {
				return err
			}
			blobs = append(blobs, b)
		}
		sec, err := r.Section(spriteDataSection)
		if err != nil {
			return err
		}
		parts := append(flags.Tables(), blobs[0], padEven(blobs[1], 0xFF), offsets, blobs[2])
		leas := make(map[string]uint32, len(spriteDataLeas)+len(spriteLeaAliases))
		addr := sec.Begin
		for i, p := range parts {
			leas[spriteDataLeas[i]] = addr
			addr += uint32(len(p))
		}
		for alias, of := range spriteLeaAliases {
			if r.AddressExists(alias) {
				leas[alias] = leas[of]
			}
		}
		g.sprites.AddPendingWrite(spriteDataSection, bytes.Join(append(parts, table), nil))
		g.sprites.AddPendingWrite(spriteTableAddr, be32(addr))
		return g.addLeaWrites(r, g.sprites, leas)
	})
	return nil
}

func (g *GameData) loadScripts(r *rom.Rom) error {
	if !missing(r, []string{scriptSection}, nil) {
		data, err := r.ReadSection(scriptSection)
		if err != nil {
			return err
		}
		h, err := g.AddScript("Script", "scripts/script.bin", data)
		if err != nil {
			return err
		}
		g.refresh = append(g.refresh, func(*rom.Rom) error {
			b, err := g.Scripts.Bytes(h)
			if err != nil {
				return err
			}
			g.scripts.AddPendingWrite(scriptSection, b)
			return nil
		})
	}
	if !missing(r, []string{progressFlagSection}, nil) {
		data, err := r.ReadSection(progressFlagSection)
		if err != nil {
			return err
		}
		h, err := g.AddProgressFlags("ProgressFlags", "scripts/progress_flags.bin", data)
		if err != nil {
			return err
		}
		g.refresh = append(g.refresh, func(*rom.Rom) error {
			b, err := g.ProgressFlags.Bytes(h)
			if err != nil {
				return err
			}
			g.scripts.AddPendingWrite(progressFlagSection, b)
			return nil
		})
	}
	return nil
}

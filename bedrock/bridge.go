// Package bedrock feeds a tracker from Bedrock protocol packets.
package bedrock

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/catacombs"
)

const zombieType = "minecraft:zombie"

// actor is what the bridge remembers about a spawned entity for mimic
// detection.
type actor struct {
	unique int64
	zombie bool
	baby   bool
	armor  int
}

// Bridge translates packets received by a client into tracker input. It is
// not safe for concurrent use; call HandlePacket from the read loop.
type Bridge struct {
	svc     *catacombs.Service
	palette *Palette
	log     logrus.FieldLogger

	tab    map[uuid.UUID]string
	actors map[uint64]actor
	colors []byte
	decos  []catacombs.MapDecoration
}

// NewBridge feeds svc from a dragonfly server.
func NewBridge(svc *catacombs.Service, log logrus.FieldLogger) *Bridge {
	return &Bridge{
		svc:     svc,
		palette: NewPalette(),
		log:     log,
		tab:     make(map[uuid.UUID]string),
		actors:  make(map[uint64]actor),
		colors:  make([]byte, catacombs.MapPixels),
	}
}

// HandlePacket applies pk. Packets the tracker has no use for are ignored.
func (b *Bridge) HandlePacket(pk packet.Packet) {
	switch pk := pk.(type) {
	case *packet.Text:
		b.handleText(pk)
	case *packet.SetScore:
		b.handleScore(pk)
	case *packet.PlayerList:
		b.handlePlayerList(pk)
	case *packet.ClientBoundMapItemData:
		b.handleMap(pk)
	case *packet.AddActor:
		b.handleAddActor(pk)
	case *packet.MobArmourEquipment:
		b.handleArmour(pk)
	case *packet.ActorEvent:
		b.handleActorEvent(pk)
	case *packet.RemoveActor:
		b.removeActor(pk.EntityUniqueID)
	case *packet.ChangeDimension:
		b.reset()
		b.svc.Do(func(t *catacombs.Tracker) {
			t.HandleWorldUnload()
		})
	}
}

func (b *Bridge) reset() {
	clear(b.tab)
	clear(b.actors)
	clear(b.colors)
	b.decos = nil
}

func (b *Bridge) handleText(pk *packet.Text) {
	if pk.NeedsTranslation {
		return
	}
	line := pk.Message
	if pk.TextType == packet.TextTypeChat && pk.SourceName != "" {
		line = fmt.Sprintf("%s: %s", pk.SourceName, pk.Message)
	}
	b.svc.Do(func(t *catacombs.Tracker) {
		t.HandleChat(line)
	})
}

func (b *Bridge) handleScore(pk *packet.SetScore) {
	if pk.ActionType != packet.ScoreboardActionModify {
		return
	}
	b.svc.Do(func(t *catacombs.Tracker) {
		for _, e := range pk.Entries {
			if e.DisplayName == "" {
				continue
			}
			t.HandleScoreboardLine(e.DisplayName)
		}
	})
}

// handlePlayerList treats the first add of an entry as a new tab line and a
// repeated add with a changed name as an update.
func (b *Bridge) handlePlayerList(pk *packet.PlayerList) {
	if pk.ActionType != packet.PlayerListActionAdd {
		for _, e := range pk.Entries {
			delete(b.tab, e.UUID)
		}
		return
	}

	b.svc.Do(func(t *catacombs.Tracker) {
		for _, e := range pk.Entries {
			prev, known := b.tab[e.UUID]
			b.tab[e.UUID] = e.Username
			switch {
			case !known:
				t.HandleTabAdd(e.Username)
			case prev != e.Username:
				t.HandleTabUpdate(e.Username)
			}
		}
	})
}

func (b *Bridge) handleMap(pk *packet.ClientBoundMapItemData) {
	if pk.UpdateFlags&packet.MapUpdateFlagTexture != 0 {
		b.applyPixels(pk)
	}
	if pk.UpdateFlags&packet.MapUpdateFlagDecoration != 0 {
		b.decos = convertDecorations(pk.Decorations)
	}

	data := catacombs.MapData{
		Colors:      append([]byte(nil), b.colors...),
		Decorations: append([]catacombs.MapDecoration(nil), b.decos...),
	}
	b.svc.Do(func(t *catacombs.Tracker) {
		t.HandleMap(data)
	})
}

// applyPixels copies a texture update into the 128x128 buffer.
func (b *Bridge) applyPixels(pk *packet.ClientBoundMapItemData) {
	w, h := int(pk.Width), int(pk.Height)
	ox, oy := int(pk.XOffset), int(pk.YOffset)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if i >= len(pk.Pixels) {
				return
			}
			mx, my := ox+x, oy+y
			if mx < 0 || mx >= catacombs.MapWidth || my < 0 || my >= catacombs.MapHeight {
				continue
			}
			b.colors[mx+my*catacombs.MapWidth] = b.palette.Index(pk.Pixels[i])
		}
	}
}

// convertDecorations names decorations icon-0, icon-1, ... in send order
// unless the server labelled them.
func convertDecorations(in []protocol.MapDecoration) []catacombs.MapDecoration {
	out := make([]catacombs.MapDecoration, 0, len(in))
	for i, d := range in {
		name := d.Label
		if name == "" {
			name = fmt.Sprintf("icon-%d", i)
		}
		out = append(out, catacombs.MapDecoration{
			Name:     name,
			X:        int8(d.X),
			Y:        int8(d.Y),
			Rotation: d.Rotation,
		})
	}
	return out
}

func (b *Bridge) handleAddActor(pk *packet.AddActor) {
	if pk.EntityType != zombieType {
		return
	}
	a := actor{unique: pk.EntityUniqueID, zombie: true}
	if flags, ok := pk.EntityMetadata[protocol.EntityDataKeyFlags].(int64); ok {
		a.baby = flags&(1<<protocol.EntityDataFlagBaby) != 0
	}
	b.actors[pk.EntityRuntimeID] = a
}

func (b *Bridge) removeActor(unique int64) {
	for id, a := range b.actors {
		if a.unique == unique {
			delete(b.actors, id)
		}
	}
}

func (b *Bridge) handleArmour(pk *packet.MobArmourEquipment) {
	a, ok := b.actors[pk.EntityRuntimeID]
	if !ok {
		return
	}
	a.armor = 0
	for _, it := range []protocol.ItemInstance{pk.Helmet, pk.Chestplate, pk.Leggings, pk.Boots} {
		if it.Stack.NetworkID != 0 {
			a.armor++
		}
	}
	b.actors[pk.EntityRuntimeID] = a
}

func (b *Bridge) handleActorEvent(pk *packet.ActorEvent) {
	if pk.EventType != packet.ActorEventDeath {
		return
	}
	a, ok := b.actors[pk.EntityRuntimeID]
	if !ok {
		return
	}
	delete(b.actors, pk.EntityRuntimeID)
	b.svc.Do(func(t *catacombs.Tracker) {
		t.HandleEntityDeath(catacombs.EntityDeath{Zombie: a.zombie, Baby: a.baby, Armor: a.armor})
	})
	b.log.WithField("baby", a.baby).Debug("bedrock: zombie died")
}

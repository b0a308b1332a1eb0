package bedrock

import (
	"image/color"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/catacombs"
)

func newTestBridge(t *testing.T) (*Bridge, *catacombs.Service) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	tr := catacombs.NewBuilder().
		World(catacombs.NewMemoryWorld()).
		LocalPlayer("Alice").
		Logger(log).
		Init()
	svc := catacombs.NewService(tr, catacombs.DefaultConfig())
	return NewBridge(svc, log), svc
}

func enter(b *Bridge, floor string) {
	b.HandlePacket(&packet.PlayerList{
		ActionType: packet.PlayerListActionAdd,
		Entries:    []protocol.PlayerListEntry{{UUID: uuid.New(), Username: "§b§lArea: §7Catacombs"}},
	})
	b.HandlePacket(&packet.SetScore{
		ActionType: packet.ScoreboardActionModify,
		Entries:    []protocol.ScoreboardEntry{{DisplayName: "§7 ⏣ §cThe Catacombs §7(" + floor + ")"}},
	})
}

func TestBridgeEntersDungeon(t *testing.T) {
	b, svc := newTestBridge(t)
	enter(b, "F6")

	svc.View(func(tr *catacombs.Tracker) {
		if !tr.Location().InWorld(catacombs.WorldCatacombs) {
			t.Errorf("expected the catacombs, got %q", tr.Location().Area())
		}
		if tr.Dungeon().Floor() != "F6" {
			t.Errorf("expected floor F6, got %q", tr.Dungeon().Floor())
		}
	})

	b.HandlePacket(&packet.ChangeDimension{})
	svc.View(func(tr *catacombs.Tracker) {
		if tr.Location().Area() != "" || tr.Dungeon().Floor() != "" {
			t.Errorf("expected the run to reset on a dimension change")
		}
	})
	if len(b.tab) != 0 {
		t.Fatalf("expected the tab cache to be cleared")
	}
}

func TestBridgeTabUpdates(t *testing.T) {
	b, svc := newTestBridge(t)
	enter(b, "F7")

	id := uuid.New()
	add := func(name string) {
		b.HandlePacket(&packet.PlayerList{
			ActionType: packet.PlayerListActionAdd,
			Entries:    []protocol.PlayerListEntry{{UUID: id, Username: name}},
		})
	}
	add(" Crypts: 1")
	add(" Crypts: 4")
	svc.View(func(tr *catacombs.Tracker) {
		if tr.Dungeon().Crypts() != 4 {
			t.Errorf("expected the updated crypt count, got %d", tr.Dungeon().Crypts())
		}
	})

	b.HandlePacket(&packet.PlayerList{
		ActionType: packet.PlayerListActionRemove,
		Entries:    []protocol.PlayerListEntry{{UUID: id}},
	})
	if _, ok := b.tab[id]; ok {
		t.Fatalf("expected the removed entry to be forgotten")
	}
}

func TestBridgeMimicDeath(t *testing.T) {
	b, svc := newTestBridge(t)
	enter(b, "F7")

	b.HandlePacket(&packet.AddActor{
		EntityUniqueID:  10,
		EntityRuntimeID: 20,
		EntityType:      "minecraft:skeleton",
	})
	b.HandlePacket(&packet.AddActor{
		EntityUniqueID:  11,
		EntityRuntimeID: 21,
		EntityType:      zombieType,
		EntityMetadata:  map[uint32]any{protocol.EntityDataKeyFlags: int64(1 << protocol.EntityDataFlagBaby)},
	})
	if len(b.actors) != 1 || !b.actors[21].baby {
		t.Fatalf("expected one baby zombie, got %+v", b.actors)
	}

	b.HandlePacket(&packet.ActorEvent{EntityRuntimeID: 20, EventType: packet.ActorEventDeath})
	svc.View(func(tr *catacombs.Tracker) {
		if tr.Dungeon().MimicDead() {
			t.Errorf("an untracked entity killed the mimic")
		}
	})

	b.HandlePacket(&packet.ActorEvent{EntityRuntimeID: 21, EventType: packet.ActorEventDeath})
	svc.View(func(tr *catacombs.Tracker) {
		if !tr.Dungeon().MimicDead() {
			t.Errorf("expected the mimic to be dead")
		}
	})
	if len(b.actors) != 0 {
		t.Fatalf("expected the dead zombie to be forgotten")
	}
}

func TestBridgeRemoveActor(t *testing.T) {
	b, _ := newTestBridge(t)
	b.HandlePacket(&packet.AddActor{EntityUniqueID: 5, EntityRuntimeID: 6, EntityType: zombieType})
	b.HandlePacket(&packet.RemoveActor{EntityUniqueID: 5})
	if len(b.actors) != 0 {
		t.Fatalf("expected the actor to be removed")
	}
}

func TestBridgeMapPixels(t *testing.T) {
	b, _ := newTestBridge(t)
	red := color.RGBA{R: 255, A: 255}
	b.HandlePacket(&packet.ClientBoundMapItemData{
		UpdateFlags: packet.MapUpdateFlagTexture | packet.MapUpdateFlagDecoration,
		Width:       2,
		Height:      1,
		XOffset:     catacombs.MapWidth - 1,
		Pixels:      []color.RGBA{red, red},
		Decorations: []protocol.MapDecoration{{X: 4, Y: 250, Rotation: 8}, {Label: "Bob"}},
	})

	if got := b.colors[catacombs.MapWidth-1]; got != 18 {
		t.Fatalf("expected the red palette index, got %d", got)
	}
	// The second pixel is past the right edge and must not wrap.
	if b.colors[catacombs.MapWidth] != 0 {
		t.Fatalf("pixel wrapped onto the next row")
	}
	if len(b.decos) != 2 || b.decos[0].Name != "icon-0" || b.decos[1].Name != "Bob" {
		t.Fatalf("unexpected decorations %+v", b.decos)
	}
	if b.decos[0].X != 4 || b.decos[0].Y != -6 || b.decos[0].Rotation != 8 {
		t.Fatalf("unexpected decoration position %+v", b.decos[0])
	}
}

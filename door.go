package catacombs

import "fmt"

// DoorY is the Y level doors are sampled at.
const DoorY = 69

// Door is a connector between two adjacent room cells.
type Door struct {
	env      *env
	x, z     int
	lattice  Component
	typ      DoorType
	opened   bool
	rotation int
}

func newDoor(e *env, x, z int, lattice Component) *Door {
	d := &Door{
		env:      e,
		x:        x,
		z:        z,
		lattice:  lattice,
		typ:      DoorNormal,
		rotation: rotationUnknown,
	}
	if lattice.X != 0 && lattice.Z != 0 {
		d.checkType()
	}
	return d
}

// Position returns the world block the door state is sampled from.
func (d *Door) Position() (x, y, z int) { return d.x, DoorY, d.z }

// Component returns the door's lattice component.
func (d *Door) Component() Component { return d.lattice }

func (d *Door) Type() DoorType { return d.typ }

func (d *Door) Opened() bool { return d.opened }

// Rotation returns 0 for doors between vertically adjacent rooms. Other doors
// have no resolved rotation.
func (d *Door) Rotation() (int, bool) {
	return d.rotation, d.rotation != rotationUnknown
}

func (d *Door) String() string {
	return fmt.Sprintf("Door[pos: (%d, %d, %d), comp: %v, type: %s, opened: %t]", d.x, DoorY, d.z, d.lattice, d.typ, d.opened)
}

// check marks the door opened once its block is gone.
func (d *Door) check() {
	if !d.env.world.IsChunkLoaded(d.x, DoorY, d.z) {
		return
	}
	d.opened = d.env.world.BlockAt(d.x, DoorY, d.z).IsAir()
}

func (d *Door) checkType() {
	if !d.env.world.IsChunkLoaded(d.x, DoorY, d.z) {
		return
	}

	switch d.env.world.BlockAt(d.x, DoorY, d.z).ID {
	case BlockAir, BlockBarrier:
		return
	case BlockMonsterEgg:
		d.typ = DoorEntrance
	case BlockCoal:
		d.typ = DoorWither
	case BlockStainedClay:
		d.typ = DoorBlood
	}
	d.opened = false
}

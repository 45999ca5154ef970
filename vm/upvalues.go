package vm

import "github.com/briskvm/brisk/object"

// findOrCreateUpvalue returns the open cell aliasing stackIndex, creating
// one and linking it into the descending-sorted open-upvalue list if none
// exists yet, per §4.3's "guarantee closures sharing the same source
// variable share one handle."
func (v *VM) findOrCreateUpvalue(stackIndex int) *object.Cell {
	var prev *object.Cell
	cur := v.openUpvalues
	for cur != nil && cur.StackIndex > stackIndex {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.StackIndex == stackIndex {
		return cur
	}
	fresh := object.NewOpenCell(stackIndex)
	fresh.Next = cur
	if prev == nil {
		v.openUpvalues = fresh
	} else {
		prev.Next = fresh
	}
	return fresh
}

// closeUpvalueAt closes and unlinks the single open upvalue aliasing
// exactly stackIndex, used by the operand-less CLOSE_UPVALUE opcode,
// which always targets the slot currently on top of the stack.
func (v *VM) closeUpvalueAt(stackIndex int) {
	var prev *object.Cell
	cur := v.openUpvalues
	for cur != nil {
		if cur.StackIndex == stackIndex {
			cur.Close(v.stack)
			if prev == nil {
				v.openUpvalues = cur.Next
			} else {
				prev.Next = cur.Next
			}
			return
		}
		prev = cur
		cur = cur.Next
	}
}

// closeUpvaluesFrom closes every open upvalue whose stack location is at
// or above floor, copying the live value out of the stack and detaching
// it from the open list.
func (v *VM) closeUpvaluesFrom(floor int) {
	for v.openUpvalues != nil && v.openUpvalues.StackIndex >= floor {
		v.openUpvalues.Close(v.stack)
		v.openUpvalues = v.openUpvalues.Next
	}
}

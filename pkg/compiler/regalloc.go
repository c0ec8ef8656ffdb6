package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"regjs/pkg/bytecode"
)

// Debug flag for register allocation tracing
const debugRegAlloc = false

var regallocLog = commonlog.GetLogger("regjs.compiler.regalloc")

// Register represents a virtual register index inside one compilation unit.
type Register = bytecode.Register

// BadRegister is returned alongside errors.
const BadRegister Register = -1

// RegisterAllocator manages the register namespace of one compilation unit.
// Freed registers are reused LIFO before the counter is bumped.
type RegisterAllocator struct {
	nextReg  Register   // Index of the next fresh register
	maxReg   Register   // Highest register index allocated so far
	freeRegs []Register // Stack of available registers to reuse
	live     map[Register]bool
	// Pinned registers survive Free. A binding captured by a closure is
	// pinned so that its register is never handed out again.
	pinnedRegs map[Register]bool
}

// NewRegisterAllocator creates a new allocator for a compilation unit.
func NewRegisterAllocator() *RegisterAllocator {
	return &RegisterAllocator{
		nextReg:    0,
		maxReg:     BadRegister,
		freeRegs:   make([]Register, 0, 16),
		live:       make(map[Register]bool),
		pinnedRegs: make(map[Register]bool),
	}
}

// Alloc allocates the next available register.
func (ra *RegisterAllocator) Alloc() Register {
	var reg Register
	if len(ra.freeRegs) > 0 {
		// Pop from free list (stack behavior)
		lastIdx := len(ra.freeRegs) - 1
		reg = ra.freeRegs[lastIdx]
		ra.freeRegs = ra.freeRegs[:lastIdx]
		if debugRegAlloc {
			regallocLog.Debugf("REUSE %s (from free list, %d available)", reg, len(ra.freeRegs))
		}
	} else {
		reg = ra.nextReg
		ra.nextReg++
		if debugRegAlloc {
			regallocLog.Debugf("NEW %s (nextReg now %d)", reg, ra.nextReg)
		}
	}
	if reg > ra.maxReg {
		ra.maxReg = reg
	}
	ra.live[reg] = true
	return reg
}

// Free marks a register as available for reuse, unless it's pinned.
// Freeing a register that is not live is a compiler bug and panics.
func (ra *RegisterAllocator) Free(reg Register) {
	if ra.pinnedRegs[reg] {
		if debugRegAlloc {
			regallocLog.Debugf("SKIP FREE %s (pinned)", reg)
		}
		return
	}
	if !ra.live[reg] {
		panic(fmt.Sprintf("compiler error: free of non-live register %s", reg))
	}
	delete(ra.live, reg)
	ra.freeRegs = append(ra.freeRegs, reg)
	if debugRegAlloc {
		regallocLog.Debugf("FREE %s (free list has %d registers)", reg, len(ra.freeRegs))
	}
}

// IsLive reports whether reg is currently allocated.
func (ra *RegisterAllocator) IsLive(reg Register) bool {
	return ra.live[reg]
}

// LiveCount returns the number of currently allocated registers.
func (ra *RegisterAllocator) LiveCount() int {
	return len(ra.live)
}

// Pin marks a register as pinned, preventing it from being freed.
func (ra *RegisterAllocator) Pin(reg Register) {
	ra.pinnedRegs[reg] = true
	if debugRegAlloc {
		regallocLog.Debugf("PIN %s (now %d pinned registers)", reg, len(ra.pinnedRegs))
	}
}

// Unpin removes the pin from a register, allowing it to be freed again.
func (ra *RegisterAllocator) Unpin(reg Register) {
	delete(ra.pinnedRegs, reg)
}

// IsPinned checks if a register is currently pinned.
func (ra *RegisterAllocator) IsPinned(reg Register) bool {
	return ra.pinnedRegs[reg]
}

// Peek returns the register the next Alloc would return, without
// allocating it.
func (ra *RegisterAllocator) Peek() Register {
	if n := len(ra.freeRegs); n > 0 {
		return ra.freeRegs[n-1]
	}
	return ra.nextReg
}

// MaxRegs returns the number of register slots the unit needs: the highest
// register index ever allocated plus one.
func (ra *RegisterAllocator) MaxRegs() int {
	return int(ra.maxReg) + 1
}

// Reset prepares the allocator for a new compilation unit.
func (ra *RegisterAllocator) Reset() {
	ra.nextReg = 0
	ra.maxReg = BadRegister
	ra.freeRegs = ra.freeRegs[:0]
	ra.live = make(map[Register]bool)
	ra.pinnedRegs = make(map[Register]bool)
}

// --- RegisterGroup for managing register lifetimes ---

// RegisterGroup collects registers that must stay live together, such as
// the argument registers of a call, and frees them at once.
type RegisterGroup struct {
	allocator *RegisterAllocator
	registers []Register
	released  bool
}

// NewGroup creates a new register group associated with this allocator.
func (ra *RegisterAllocator) NewGroup() *RegisterGroup {
	return &RegisterGroup{allocator: ra}
}

// Add registers a register with this group for lifetime management.
func (rg *RegisterGroup) Add(reg Register) {
	if rg.released {
		panic("Cannot add register to released group")
	}
	rg.registers = append(rg.registers, reg)
}

// Alloc allocates a register and adds it to the group.
func (rg *RegisterGroup) Alloc() Register {
	reg := rg.allocator.Alloc()
	rg.Add(reg)
	return reg
}

// Registers returns a copy of the registers currently in this group.
func (rg *RegisterGroup) Registers() []Register {
	result := make([]Register, len(rg.registers))
	copy(result, rg.registers)
	return result
}

// Count returns the number of registers in this group.
func (rg *RegisterGroup) Count() int {
	return len(rg.registers)
}

// Release frees all registers in this group in allocation order.
func (rg *RegisterGroup) Release() {
	if rg.released {
		return
	}
	for _, reg := range rg.registers {
		rg.allocator.Free(reg)
	}
	rg.released = true
}

// IsReleased returns whether this group has been released.
func (rg *RegisterGroup) IsReleased() bool {
	return rg.released
}

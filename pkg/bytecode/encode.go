package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so that equal programs always
// encode to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// programWire has Program's layout without its methods, so the CBOR codec
// does not route back through MarshalBinary/UnmarshalBinary.
type programWire Program

// MarshalBinary serializes the program to canonical CBOR.
func (p *Program) MarshalBinary() ([]byte, error) {
	return cborEncMode.Marshal((*programWire)(p))
}

// UnmarshalBinary deserializes a program produced by MarshalBinary.
func (p *Program) UnmarshalBinary(data []byte) error {
	var decoded programWire
	if err := cbor.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if decoded.Main == nil || decoded.Main.Chunk == nil {
		return fmt.Errorf("bytecode: unmarshal program: missing main unit")
	}
	for _, f := range append([]*Function{decoded.Main}, decoded.Functions...) {
		if f.Chunk == nil {
			return fmt.Errorf("bytecode: unmarshal program: %s has no code", f.ID)
		}
		if f.Chunk.Labels == nil {
			f.Chunk.Labels = make(map[Label]int)
		}
		f.Chunk.restoreNextLabel()
	}
	*p = Program(decoded)
	return nil
}

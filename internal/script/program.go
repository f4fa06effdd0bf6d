package script

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Image layout: magic, ISA version, reserved byte, big-endian u16 code length, code.
var imageMagic = [4]byte{'R', 'G', 'B', 'C'}

const (
	imageHeaderSize = 8
	maxCodeSize     = 0xFFFF
)

var (
	// ErrBadImage is returned when a program image cannot be decoded.
	ErrBadImage = errors.New("script: bad program image")

	// ErrInvalidProgram is returned when bytecode fails verification.
	ErrInvalidProgram = errors.New("script: invalid program")
)

// Program is verified bytecode. The zero value is not usable; build one
// with NewProgram, Decode or Assemble.
type Program struct {
	code []byte
}

// NewProgram verifies code and wraps it in a Program.
func NewProgram(code []byte) (*Program, error) {
	if err := verify(code); err != nil {
		return nil, err
	}
	return &Program{code: append([]byte(nil), code...)}, nil
}

// Code returns a copy of the bytecode.
func (p *Program) Code() []byte {
	return append([]byte(nil), p.code...)
}

// Len returns the bytecode length.
func (p *Program) Len() int {
	return len(p.code)
}

// Encode serializes the program as an image.
func (p *Program) Encode() []byte {
	out := make([]byte, imageHeaderSize+len(p.code))
	copy(out, imageMagic[:])
	out[4] = ISAVersion
	binary.BigEndian.PutUint16(out[6:8], uint16(len(p.code)))
	copy(out[imageHeaderSize:], p.code)
	return out
}

// Decode parses and verifies a program image.
func Decode(img []byte) (*Program, error) {
	if len(img) < imageHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrBadImage, len(img))
	}
	if [4]byte(img[:4]) != imageMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadImage, img[:4])
	}
	if img[4] != ISAVersion {
		return nil, fmt.Errorf("%w: ISA version %d, expected %d", ErrBadImage, img[4], ISAVersion)
	}
	n := int(binary.BigEndian.Uint16(img[6:8]))
	if len(img)-imageHeaderSize != n {
		return nil, fmt.Errorf("%w: code length %d, image carries %d", ErrBadImage, n, len(img)-imageHeaderSize)
	}
	return NewProgram(img[imageHeaderSize:])
}

// verify walks the bytecode once, checking every opcode, operand, native id
// and jump target so the interpreter never has to.
func verify(code []byte) error {
	if len(code) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidProgram)
	}
	if len(code) > maxCodeSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidProgram, len(code), maxCodeSize)
	}

	starts := make(map[int]bool)
	var jumps []int
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		info, ok := opcodes[op]
		if !ok {
			return fmt.Errorf("%w: unknown opcode 0x%02x at %04d", ErrInvalidProgram, byte(op), pc)
		}
		if pc+1+info.operand > len(code) {
			return fmt.Errorf("%w: truncated %s at %04d", ErrInvalidProgram, info.name, pc)
		}
		starts[pc] = true
		switch {
		case op.isJump():
			jumps = append(jumps, pc)
		case op == OpCall:
			if int(code[pc+1]) >= len(natives) {
				return fmt.Errorf("%w: unknown native %d at %04d", ErrInvalidProgram, code[pc+1], pc)
			}
		}
		pc += 1 + info.operand
	}

	for _, pc := range jumps {
		target := int(binary.BigEndian.Uint16(code[pc+1:]))
		if target != len(code) && !starts[target] {
			return fmt.Errorf("%w: jump at %04d to %04d is not an instruction", ErrInvalidProgram, pc, target)
		}
	}
	return nil
}

package script

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed assembly source.
var ErrSyntax = errors.New("script: syntax error")

type asmLine struct {
	num     int
	op      Opcode
	operand string
}

// Assemble compiles assembly source into a verified program.
//
// One instruction per line. A line may start with "label:". Comments begin
// with ';' or '#'. Jumps take a label or an absolute offset, call takes a
// native name or id, and push takes any integer literal strconv accepts.
func Assemble(src string) (*Program, error) {
	labels := make(map[string]int)
	var lines []asmLine
	pc := 0

	for i, raw := range strings.Split(src, "\n") {
		num := i + 1
		text := raw
		if idx := strings.IndexAny(text, ";#"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)

		for {
			idx := strings.IndexByte(text, ':')
			if idx < 0 {
				break
			}
			label := strings.TrimSpace(text[:idx])
			if !validLabel(label) {
				return nil, fmt.Errorf("%w: line %d: bad label %q", ErrSyntax, num, label)
			}
			if _, dup := labels[label]; dup {
				return nil, fmt.Errorf("%w: line %d: duplicate label %q", ErrSyntax, num, label)
			}
			labels[label] = pc
			text = strings.TrimSpace(text[idx+1:])
		}
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		op, ok := mnemonics[strings.ToLower(fields[0])]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: unknown instruction %q", ErrSyntax, num, fields[0])
		}
		info := opcodes[op]
		switch {
		case info.operand == 0 && len(fields) != 1:
			return nil, fmt.Errorf("%w: line %d: %s takes no operand", ErrSyntax, num, info.name)
		case info.operand > 0 && len(fields) != 2:
			return nil, fmt.Errorf("%w: line %d: %s takes one operand", ErrSyntax, num, info.name)
		}

		ln := asmLine{num: num, op: op}
		if len(fields) == 2 {
			ln.operand = fields[1]
		}
		lines = append(lines, ln)
		pc += 1 + info.operand
	}

	code := make([]byte, 0, pc)
	for _, ln := range lines {
		code = append(code, byte(ln.op))
		switch {
		case ln.op == OpPush:
			v, err := strconv.ParseInt(ln.operand, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad integer %q", ErrSyntax, ln.num, ln.operand)
			}
			code = binary.BigEndian.AppendUint32(code, uint32(int32(v)))
		case ln.op.isJump():
			target, ok := labels[ln.operand]
			if !ok {
				v, err := strconv.ParseUint(ln.operand, 10, 16)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: unknown label %q", ErrSyntax, ln.num, ln.operand)
				}
				target = int(v)
			}
			code = binary.BigEndian.AppendUint16(code, uint16(target))
		case ln.op == OpCall:
			id, ok := NativeID(ln.operand)
			if !ok {
				v, err := strconv.ParseUint(ln.operand, 0, 8)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: unknown native %q", ErrSyntax, ln.num, ln.operand)
				}
				id = uint8(v)
			}
			code = append(code, id)
		}
	}

	return NewProgram(code)
}

func validLabel(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Disassemble renders a program one instruction per line, prefixed with
// its offset.
func Disassemble(p *Program) string {
	var b strings.Builder
	code := p.code
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		info := opcodes[op]
		fmt.Fprintf(&b, "%04d  %s", pc, info.name)
		switch {
		case op == OpPush:
			fmt.Fprintf(&b, " %d", int32(binary.BigEndian.Uint32(code[pc+1:])))
		case op.isJump():
			fmt.Fprintf(&b, " %04d", binary.BigEndian.Uint16(code[pc+1:]))
		case op == OpCall:
			fmt.Fprintf(&b, " %s", NativeName(code[pc+1]))
		}
		b.WriteByte('\n')
		pc += 1 + info.operand
	}
	return b.String()
}

package script

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Limits on one invocation.
const (
	MaxStack    = 64
	MaxCommands = 16
)

var (
	// ErrBudgetExceeded reports that a run stopped at its step budget. The
	// commands queued before that point are still valid.
	ErrBudgetExceeded = errors.New("script: step budget exceeded")

	// ErrFault reports a runtime fault such as a stack underflow or a
	// division by zero. Commands queued before the fault are kept.
	ErrFault = errors.New("script: fault")
)

// Status describes how a run ended.
type Status uint8

const (
	StatusHalted Status = iota
	StatusYielded
	StatusBudgetExceeded
	StatusFault
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case StatusHalted:
		return "halted"
	case StatusYielded:
		return "yielded"
	case StatusBudgetExceeded:
		return "budget_exceeded"
	case StatusFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Result is the outcome of one invocation.
type Result struct {
	Commands []Command
	Steps    int
	Status   Status
}

// Machine runs one program. It keeps only the program counter between
// invocations: a yield resumes at the next instruction, anything else
// restarts from the top.
type Machine struct {
	prog *Program
	pc   int
}

// NewMachine creates a machine positioned at the start of p.
func NewMachine(p *Program) *Machine {
	return &Machine{prog: p}
}

// PC returns the stored program counter.
func (m *Machine) PC() int { return m.pc }

// Reset moves the stored program counter back to the start.
func (m *Machine) Reset() { m.pc = 0 }

// frame is the state of one invocation. It never outlives Run.
type frame struct {
	pc    int
	stack []int32
	steps int
	cmds  []Command
}

type fault string

func (ctx *frame) push(v int32) {
	if len(ctx.stack) >= MaxStack {
		panic(fault("stack overflow"))
	}
	ctx.stack = append(ctx.stack, v)
}

func (ctx *frame) pop() int32 {
	n := len(ctx.stack)
	if n == 0 {
		panic(fault("stack underflow"))
	}
	v := ctx.stack[n-1]
	ctx.stack = ctx.stack[:n-1]
	return v
}

func (ctx *frame) peek(depth int) int32 {
	n := len(ctx.stack)
	if n <= depth {
		panic(fault("stack underflow"))
	}
	return ctx.stack[n-1-depth]
}

// Run executes from the stored program counter until the program halts,
// yields, faults, or has executed budget instructions.
func (m *Machine) Run(s Snapshot, budget int) (res Result, err error) {
	ctx := &frame{pc: m.pc, stack: make([]int32, 0, 16)}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		f, ok := r.(fault)
		if !ok {
			panic(r)
		}
		at := ctx.pc
		m.pc = 0
		res = Result{Commands: ctx.cmds, Steps: ctx.steps, Status: StatusFault}
		err = fmt.Errorf("%w: %s at %04d", ErrFault, string(f), at)
	}()

	code := m.prog.code
	for {
		if ctx.steps >= budget {
			m.pc = 0
			return Result{Commands: ctx.cmds, Steps: ctx.steps, Status: StatusBudgetExceeded}, ErrBudgetExceeded
		}
		if ctx.pc >= len(code) {
			m.pc = 0
			return Result{Commands: ctx.cmds, Steps: ctx.steps, Status: StatusHalted}, nil
		}

		op := Opcode(code[ctx.pc])
		next := ctx.pc + 1 + opcodes[op].operand
		ctx.steps++

		switch op {
		case OpNop:
		case OpPush:
			ctx.push(int32(binary.BigEndian.Uint32(code[ctx.pc+1:])))
		case OpPop:
			ctx.pop()
		case OpDup:
			ctx.push(ctx.peek(0))
		case OpSwap:
			b, a := ctx.pop(), ctx.pop()
			ctx.push(b)
			ctx.push(a)
		case OpOver:
			ctx.push(ctx.peek(1))

		case OpAdd, OpSub, OpMul, OpDiv, OpMod,
			OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpAnd, OpOr:
			b, a := ctx.pop(), ctx.pop()
			ctx.push(binary32(op, a, b))
		case OpNeg:
			ctx.push(-ctx.pop())
		case OpNot:
			ctx.push(boolValue(ctx.pop() == 0))

		case OpJmp:
			next = int(binary.BigEndian.Uint16(code[ctx.pc+1:]))
		case OpJz:
			if ctx.pop() == 0 {
				next = int(binary.BigEndian.Uint16(code[ctx.pc+1:]))
			}
		case OpJnz:
			if ctx.pop() != 0 {
				next = int(binary.BigEndian.Uint16(code[ctx.pc+1:]))
			}

		case OpCall:
			ctx.call(s, code[ctx.pc+1])

		case OpYield:
			m.pc = next
			return Result{Commands: ctx.cmds, Steps: ctx.steps, Status: StatusYielded}, nil
		case OpHalt:
			m.pc = 0
			return Result{Commands: ctx.cmds, Steps: ctx.steps, Status: StatusHalted}, nil
		}

		ctx.pc = next
	}
}

func (ctx *frame) call(s Snapshot, id uint8) {
	n := natives[id]
	if n.action {
		if len(ctx.cmds) >= MaxCommands {
			panic(fault("command limit reached"))
		}
		ctx.cmds = append(ctx.cmds, Command(id))
		return
	}
	args := make([]int32, n.args)
	for i := n.args - 1; i >= 0; i-- {
		args[i] = ctx.pop()
	}
	ctx.push(n.query(s, args))
}

func binary32(op Opcode, a, b int32) int32 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		if b == 0 {
			panic(fault("division by zero"))
		}
		return a / b
	case OpMod:
		if b == 0 {
			panic(fault("division by zero"))
		}
		return a % b
	case OpEq:
		return boolValue(a == b)
	case OpNe:
		return boolValue(a != b)
	case OpLt:
		return boolValue(a < b)
	case OpLe:
		return boolValue(a <= b)
	case OpGt:
		return boolValue(a > b)
	case OpGe:
		return boolValue(a >= b)
	case OpAnd:
		return boolValue(a != 0 && b != 0)
	case OpOr:
		return boolValue(a != 0 || b != 0)
	}
	return 0
}

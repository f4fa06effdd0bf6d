package script

import "fmt"

// Command is an action queued by a program.
type Command uint8

const (
	CmdMoveLeft Command = iota
	CmdMoveRight
	CmdMoveDown
	CmdRotateCW
	CmdRotateCCW
	CmdHardDrop
	CmdHold
)

// String returns the native name that queues the command.
func (c Command) String() string {
	if int(c) < len(natives) && natives[c].action {
		return natives[c].name
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}

// Snapshot is the read-only board state a program may query. Shape values
// are 0..6 for I J L O S T Z and -1 for none.
type Snapshot interface {
	PieceX() int
	PieceY() int
	PieceShape() int
	PieceRotation() int
	Occupied(x, y int) bool
	HoldShape() int
	NextShape(i int) int
	ColumnHeight(x int) int
	Score() int
	PendingGarbage() int
}

type native struct {
	name   string
	args   int
	action bool
	query  func(s Snapshot, args []int32) int32
}

// natives is the fixed dispatch table indexed by the call operand. Ids
// 0..6 coincide with Command values.
var natives = [...]native{
	{name: "move_left", action: true},
	{name: "move_right", action: true},
	{name: "move_down", action: true},
	{name: "rotate_cw", action: true},
	{name: "rotate_ccw", action: true},
	{name: "hard_drop", action: true},
	{name: "hold", action: true},
	{name: "get_piece_x", query: func(s Snapshot, _ []int32) int32 { return int32(s.PieceX()) }},
	{name: "get_piece_y", query: func(s Snapshot, _ []int32) int32 { return int32(s.PieceY()) }},
	{name: "get_piece_shape", query: func(s Snapshot, _ []int32) int32 { return int32(s.PieceShape()) }},
	{name: "get_piece_rotation", query: func(s Snapshot, _ []int32) int32 { return int32(s.PieceRotation()) }},
	{name: "is_occupied", args: 2, query: func(s Snapshot, a []int32) int32 { return boolValue(s.Occupied(int(a[0]), int(a[1]))) }},
	{name: "get_hold_shape", query: func(s Snapshot, _ []int32) int32 { return int32(s.HoldShape()) }},
	{name: "get_next_shape", args: 1, query: func(s Snapshot, a []int32) int32 { return int32(s.NextShape(int(a[0]))) }},
	{name: "get_column_height", args: 1, query: func(s Snapshot, a []int32) int32 { return int32(s.ColumnHeight(int(a[0]))) }},
	{name: "get_score", query: func(s Snapshot, _ []int32) int32 { return int32(s.Score()) }},
	{name: "get_pending_garbage", query: func(s Snapshot, _ []int32) int32 { return int32(s.PendingGarbage()) }},
}

// NativeID looks up a native by name.
func NativeID(name string) (uint8, bool) {
	for i, n := range natives {
		if n.name == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// NativeName returns the name of a native id.
func NativeName(id uint8) string {
	if int(id) < len(natives) {
		return natives[id].name
	}
	return fmt.Sprintf("native(%d)", id)
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

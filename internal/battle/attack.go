package battle

// AttackTable maps a clear of 0..4 lines to garbage sent.
type AttackTable [5]int

// DefaultAttack is 0/0/1/2/4 for 0/1/2/3/4-line clears.
var DefaultAttack = AttackTable{0, 0, 1, 2, 4}

// Lines returns the garbage sent for clearing n lines. A clear made on the
// beat adds one line on top of the table.
func (t AttackTable) Lines(n int, onBeat bool) int {
	if n <= 0 {
		return 0
	}
	if n > 4 {
		n = 4
	}
	atk := t[n]
	if onBeat {
		atk++
	}
	return atk
}

var lineScores = [5]int{0, 100, 300, 500, 800}

// clearScore returns points for clearing n lines at level, including the
// on-beat multiplier and combo bonus.
func clearScore(n, level, combo int, onBeat bool) int {
	if n <= 0 {
		return 0
	}
	if n > 4 {
		n = 4
	}
	pts := lineScores[n] * level
	if onBeat {
		pts = pts * 3 / 2
	}
	if combo > 1 {
		pts += 50 * (combo - 1) * level
	}
	return pts
}

package netcode

// seqNewer reports whether a is after b, allowing for wraparound.
func seqNewer(a, b uint32) bool {
	return int32(a-b) > 0
}

// ackWindow tracks which remote sequences have been received.
type ackWindow struct {
	have bool
	last uint32
	bits uint32
}

// observe records seq as received.
func (w *ackWindow) observe(seq uint32) {
	if !w.have {
		w.have, w.last, w.bits = true, seq, 0
		return
	}
	if seqNewer(seq, w.last) {
		shift := seq - w.last
		if shift > 32 {
			w.bits = 0
		} else {
			w.bits = w.bits<<shift | 1<<(shift-1)
		}
		w.last = seq
		return
	}
	if d := w.last - seq; d >= 1 && d <= 32 {
		w.bits |= 1 << (d - 1)
	}
}

// header returns the ack fields for an outgoing header.
func (w *ackWindow) header() (ack, bits uint32) {
	if !w.have {
		return 0, 0
	}
	return w.last, w.bits
}

// acked reports whether a header with ack and bits covers seq.
func acked(seq, ack, bits uint32) bool {
	if seq == ack {
		return true
	}
	d := ack - seq
	return d >= 1 && d <= 32 && bits&(1<<(d-1)) != 0
}

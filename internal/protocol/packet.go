package protocol

import "math/rand"

// Framer prepends the packet header and a rolling sequence number to command
// payloads. The sequence is anti-collision bookkeeping for the device and
// carries no ordering or retry semantics on the host side.
//
// Framer is not safe for concurrent use; the owning session serializes sends.
type Framer struct {
	seq byte
}

// NewFramer creates a framer with a randomized starting sequence, so
// reconnects don't resume a sequence the device may still associate with the
// previous session.
func NewFramer() *Framer {
	return NewFramerWithSeq(byte(10 + rand.Intn(90)))
}

// NewFramerWithSeq creates a framer with a fixed starting sequence.
func NewFramerWithSeq(seq byte) *Framer {
	return &Framer{seq: seq}
}

// Sequence returns the sequence number the next Frame call will use.
func (f *Framer) Sequence() byte {
	return f.seq
}

// Frame wraps payload as [0xA5][seq][payload...] and advances the sequence
// counter mod 256.
func (f *Framer) Frame(payload []byte) []byte {
	packet := make([]byte, 0, 2+len(payload))
	packet = append(packet, PacketHeader, f.seq)
	packet = append(packet, payload...)
	f.seq++
	return packet
}

package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yummydirtx/open-gamalta/internal/protocol"
)

func Test_Framer(t *testing.T) {
	t.Run("prefixes header and sequence", func(t *testing.T) {
		f := protocol.NewFramerWithSeq(0x42)
		packet := f.Frame([]byte{0x01, 0x03, 0x01, 0x00, 0x00})
		assert.Equal(t, []byte{0xA5, 0x42, 0x01, 0x03, 0x01, 0x00, 0x00}, packet)
	})

	t.Run("sequence advances on every frame", func(t *testing.T) {
		f := protocol.NewFramerWithSeq(0x10)
		first := f.Frame([]byte{0x03, 0x00})
		second := f.Frame([]byte{0x03, 0x00})
		assert.Equal(t, byte(0x10), first[1])
		assert.Equal(t, byte(0x11), second[1])
	})

	t.Run("sequence wraps mod 256", func(t *testing.T) {
		f := protocol.NewFramerWithSeq(0xFF)
		assert.Equal(t, byte(0xFF), f.Frame(nil)[1])
		assert.Equal(t, byte(0x00), f.Frame(nil)[1])
	})

	t.Run("256 frames return to the starting sequence", func(t *testing.T) {
		f := protocol.NewFramerWithSeq(0x37)
		for i := 0; i < 256; i++ {
			f.Frame([]byte{0x03, 0x00})
		}
		assert.Equal(t, byte(0x37), f.Sequence())
	})

	t.Run("random seed is within the device-safe band", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			seq := protocol.NewFramer().Sequence()
			assert.GreaterOrEqual(t, seq, byte(10))
			assert.Less(t, seq, byte(100))
		}
	})
}

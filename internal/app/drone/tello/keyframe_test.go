package tello

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	sps    = []byte{0, 0, 0, 1, 0x67, 0x4d, 0x40, 0x28, 0x95}
	pps    = []byte{0, 0, 0, 1, 0x68, 0xee, 0x3c, 0x80}
	idr    = []byte{0, 0, 0, 1, 0x65, 0x88, 0x84, 0x00, 0x33, 0xff, 0x10}
	pSlice = []byte{0, 0, 0, 1, 0x41, 0x9a, 0x02}
)

func feed(k *keyframer, stream []byte, size int) {
	for len(stream) > 0 {
		n := min(size, len(stream))
		k.write(stream[:n])
		stream = stream[n:]
	}
}

func TestKeyframer(t *testing.T) {
	keyframe := slices.Concat(sps, pps, idr)

	tests := []struct {
		name   string
		stream []byte
		want   []byte
	}{
		{"incomplete idr", slices.Concat(sps, pps, idr), nil},
		{"ended by p slice", slices.Concat(sps, pps, idr, pSlice), keyframe},
		{"ended by next sps", slices.Concat(sps, pps, idr, sps), keyframe},
		{"multi slice idr", slices.Concat(sps, pps, idr, idr, pSlice), slices.Concat(keyframe, idr)},
		{"leading garbage dropped", slices.Concat(pSlice, []byte{1, 2, 3}, sps, pps, idr, pSlice), keyframe},
		{"no sps", slices.Concat(pps, idr, pSlice), nil},
		{"latest wins", slices.Concat(sps, pps, idr, pSlice, pSlice, sps, pps, idr, idr, pSlice), slices.Concat(keyframe, idr)},
	}
	for _, tt := range tests {
		for _, size := range []int{1, 3, 5, 2046} {
			t.Run(tt.name, func(t *testing.T) {
				var k keyframer
				feed(&k, tt.stream, size)
				assert.Equal(t, tt.want, k.keyframe(), "packet size %d", size)
			})
		}
	}
}

func TestKeyframer_DropsOversizedUnit(t *testing.T) {
	var k keyframer
	k.write(sps)
	k.write(make([]byte, maxUnit))
	k.write(slices.Concat(idr, pSlice))

	assert.Nil(t, k.keyframe())
	assert.LessOrEqual(t, len(k.buf), 4)
}

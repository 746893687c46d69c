package tello

import "slices"

// H.264 NAL unit types the assembler cares about.
const (
	nalIDR = 5
	nalSPS = 7
)

// maxUnit caps how much stream is buffered while waiting for a keyframe.
const maxUnit = 1 << 20

// keyframer reassembles the Annex-B stream the drone sends in UDP-sized
// pieces and keeps the last complete keyframe: the SPS, PPS and every IDR
// slice up to the next non-IDR NAL unit. The result decodes on its own.
type keyframer struct {
	buf        []byte
	collecting bool
	sawIDR     bool
	last       []byte
}

func (k *keyframer) write(pkt []byte) {
	scan := max(len(k.buf)-4, 0)
	k.buf = append(k.buf, pkt...)

	for i := scan; i+4 < len(k.buf); i++ {
		if !startCode(k.buf[i:]) {
			continue
		}
		typ := k.buf[i+4] & 0x1f
		if k.collecting && k.sawIDR && typ != nalIDR {
			k.last = slices.Clone(k.buf[:i])
			k.collecting, k.sawIDR = false, false
		}
		switch {
		case typ == nalSPS:
			k.buf = append(k.buf[:0], k.buf[i:]...)
			i = 0
			k.collecting = true
		case typ == nalIDR && k.collecting:
			k.sawIDR = true
		}
	}

	if len(k.buf) > maxUnit {
		k.collecting, k.sawIDR = false, false
	}
	if !k.collecting {
		// Keep a tail long enough to spot a start code split across packets.
		k.buf = append(k.buf[:0], k.buf[max(len(k.buf)-4, 0):]...)
	}
}

// keyframe returns a copy of the last complete keyframe, or nil.
func (k *keyframer) keyframe() []byte {
	return slices.Clone(k.last)
}

func startCode(b []byte) bool {
	return len(b) >= 4 && b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 1
}

// Package beatstest encodes beat messages the way Mixxx stores them, for building
// library fixtures.
package beatstest

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"djconv/mixxx/beats"
)

// AppendBeatGrid appends the wire encoding of g to b.
func AppendBeatGrid(b []byte, g *beats.BeatGrid) []byte {
	if g.Bpm != nil {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, appendBpm(nil, g.Bpm))
	}
	if g.FirstBeat != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, appendBeat(nil, g.FirstBeat))
	}
	return b
}

// AppendBeatMap appends the wire encoding of m to b.
func AppendBeatMap(b []byte, m *beats.BeatMap) []byte {
	for i := range m.Beats {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, appendBeat(nil, &m.Beats[i]))
	}
	return b
}

func appendBpm(b []byte, bpm *beats.Bpm) []byte {
	if bpm.Bpm != nil {
		b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(*bpm.Bpm))
	}
	if bpm.Source != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*bpm.Source)))
	}
	return b
}

func appendBeat(b []byte, beat *beats.Beat) []byte {
	if beat.FramePosition != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		// int32 fields are sign-extended to 64 bits on the wire.
		b = protowire.AppendVarint(b, uint64(int64(*beat.FramePosition)))
	}
	if beat.Enabled != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(*beat.Enabled))
	}
	if beat.Source != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*beat.Source)))
	}
	return b
}

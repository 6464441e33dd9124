// Package beats decodes the protobuf beat messages Mixxx stores in library.beats.
//
//	message Bpm      { optional double bpm = 1; optional Source source = 2; }
//	message Beat     { optional int32 frame_position = 1; optional bool enabled = 2 [default = true];
//	                   optional Source source = 3; }
//	message BeatGrid { optional Bpm bpm = 1; optional Beat first_beat = 2; }
//	message BeatMap  { repeated Beat beat = 1; }
package beats

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Source records who produced a tempo or beat value.
type Source int32

const (
	SourceAnalyzer     Source = 0
	SourceFileMetadata Source = 1
	SourceUser         Source = 2
)

func (s Source) String() string {
	switch s {
	case SourceAnalyzer:
		return "ANALYZER"
	case SourceFileMetadata:
		return "FILE_METADATA"
	case SourceUser:
		return "USER"
	default:
		return fmt.Sprintf("SOURCE_%d", int32(s))
	}
}

type Bpm struct {
	Bpm    *float64
	Source *Source
}

type Beat struct {
	FramePosition *int32
	Enabled       *bool
	Source        *Source
}

// IsEnabled applies the schema default of true.
func (b *Beat) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

type BeatGrid struct {
	Bpm       *Bpm
	FirstBeat *Beat
}

type BeatMap struct {
	Beats []Beat
}

var errWireType = errors.New("unexpected wire type")

// DecodeBeatGrid parses a BeatGrid message.
func DecodeBeatGrid(b []byte) (*BeatGrid, error) {
	grid := &BeatGrid{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			if grid.Bpm == nil {
				grid.Bpm = &Bpm{}
			}
			return consumeMessage(typ, b, func(m []byte) error { return decodeBpm(m, grid.Bpm) })
		case 2:
			if grid.FirstBeat == nil {
				grid.FirstBeat = &Beat{}
			}
			return consumeMessage(typ, b, func(m []byte) error { return decodeBeat(m, grid.FirstBeat) })
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return nil, fmt.Errorf("beat grid: %w", err)
	}
	return grid, nil
}

// DecodeBeatMap parses a BeatMap message.
func DecodeBeatMap(b []byte) (*BeatMap, error) {
	beatMap := &BeatMap{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return skipField(num, typ, b)
		}
		var beat Beat
		n, err := consumeMessage(typ, b, func(m []byte) error { return decodeBeat(m, &beat) })
		if err != nil {
			return n, err
		}
		beatMap.Beats = append(beatMap.Beats, beat)
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("beat map: %w", err)
	}
	return beatMap, nil
}

func decodeBpm(b []byte, bpm *Bpm) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			if typ != protowire.Fixed64Type {
				return 0, fmt.Errorf("bpm.bpm: %w %d", errWireType, typ)
			}
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			f := math.Float64frombits(v)
			bpm.Bpm = &f
			return n, nil
		case 2:
			return consumeSource(typ, b, &bpm.Source)
		}
		return skipField(num, typ, b)
	})
}

func decodeBeat(b []byte, beat *Beat) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, fmt.Errorf("beat.frame_position: %w", err)
			}
			pos := int32(int64(v))
			beat.FramePosition = &pos
			return n, nil
		case 2:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return 0, fmt.Errorf("beat.enabled: %w", err)
			}
			enabled := protowire.DecodeBool(v)
			beat.Enabled = &enabled
			return n, nil
		case 3:
			return consumeSource(typ, b, &beat.Source)
		}
		return skipField(num, typ, b)
	})
}

type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// consumeFields walks the tag/value pairs of one message.
func consumeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func consumeMessage(typ protowire.Type, b []byte, decode func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("%w %d for embedded message", errWireType, typ)
	}
	m, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, decode(m)
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("%w %d", errWireType, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeSource(typ protowire.Type, b []byte, dst **Source) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, fmt.Errorf("source: %w", err)
	}
	s := Source(int32(v))
	*dst = &s
	return n, nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

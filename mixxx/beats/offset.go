package beats

import (
	"fmt"
	"math"
	"strings"

	"djconv/liberr"
)

// LegacyPositionSampleRate is the divisor Mixxx positions are historically stored against,
// independent of the track's own sample rate.
const LegacyPositionSampleRate = 88_200

// Version prefixes stored in library.beats_version.
const (
	VersionBeatGrid = "BeatGrid"
	VersionBeatMap  = "BeatMap"
)

// FramesToSeconds converts a Mixxx frame position into seconds.
func FramesToSeconds(frames, sampleRate float64) float64 {
	return frames / sampleRate
}

// StartOffset returns the position of the first beat in seconds, folded into
// [0, 60/bpm). It returns nil when the blob is empty or carries no first beat.
//
// InvalidBpm and InvalidSampleRate errors come with a nil offset; callers may drop the
// offset and continue. Any other error means the blob itself is malformed.
func StartOffset(blob []byte, version string, sampleRate, bpm float64) (*float64, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	frame, err := firstBeatFrame(blob, version)
	if err != nil {
		return nil, liberr.New(liberr.KindDecode, "decode beats", err)
	}
	if frame == nil {
		return nil, nil
	}

	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return nil, liberr.New(liberr.KindInvalidBpm, "decode beats", fmt.Errorf("bpm %v", bpm))
	}
	if !(sampleRate > 0) {
		return nil, liberr.New(liberr.KindInvalidSampleRate, "decode beats", fmt.Errorf("sample rate %v", sampleRate))
	}

	beatLength := 60 / bpm
	position := FramesToSeconds(float64(*frame), sampleRate)

	// A negative first beat means beat zero sits before the audible start, and analyzers
	// sometimes point at the second beat. The grid repeats every beat, so fold onto one.
	position = math.Mod(position, beatLength)
	if position < 0 {
		position += beatLength
	}
	if position >= beatLength {
		position = 0
	}

	return &position, nil
}

func firstBeatFrame(blob []byte, version string) (*int32, error) {
	switch {
	case version == "" || strings.HasPrefix(version, VersionBeatGrid):
		grid, err := DecodeBeatGrid(blob)
		if err != nil {
			return nil, err
		}
		if grid.FirstBeat == nil {
			return nil, nil
		}
		return grid.FirstBeat.FramePosition, nil

	case strings.HasPrefix(version, VersionBeatMap):
		beatMap, err := DecodeBeatMap(blob)
		if err != nil {
			return nil, err
		}
		for i := range beatMap.Beats {
			beat := &beatMap.Beats[i]
			if beat.FramePosition != nil && beat.IsEnabled() {
				return beat.FramePosition, nil
			}
		}
		return nil, nil
	}

	return nil, fmt.Errorf("unsupported beats version %q", version)
}

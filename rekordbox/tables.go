package rekordbox

import (
	"fmt"
	"strings"

	"djconv/liberr"
)

// ratingSteps maps Mixxx stars (0-5) onto rekordbox's 0-255 rating scale.
var ratingSteps = [...]int{0, 51, 102, 153, 204, 255}

// TranslateRating converts a star rating, clamping values outside 0-5.
func TranslateRating(stars int64) int {
	if stars < 0 {
		return ratingSteps[0]
	}
	if stars >= int64(len(ratingSteps)) {
		return ratingSteps[len(ratingSteps)-1]
	}
	return ratingSteps[stars]
}

// camelotToClassic maps Camelot wheel positions to the notation rekordbox shows as Tonality.
var camelotToClassic = map[string]string{
	"1A": "Abm", "1B": "B",
	"2A": "Ebm", "2B": "F#",
	"3A": "Bbm", "3B": "Db",
	"4A": "Fm", "4B": "Ab",
	"5A": "Cm", "5B": "Eb",
	"6A": "Gm", "6B": "Bb",
	"7A": "Dm", "7B": "F",
	"8A": "Am", "8B": "C",
	"9A": "Em", "9B": "G",
	"10A": "Bm", "10B": "D",
	"11A": "F#m", "11B": "A",
	"12A": "Dbm", "12B": "E",
}

var classicToCamelot = invert(camelotToClassic)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// TranslateKey returns the rekordbox tonality for a key stored by Mixxx. Camelot input is
// converted, classic input that names one of the 24 keys is kept, anything else yields "".
func TranslateKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if classic, ok := camelotToClassic[strings.ToUpper(key)]; ok {
		return classic
	}
	if _, ok := classicToCamelot[key]; ok {
		return key
	}
	return ""
}

// fileKinds is the allow-list of Mixxx file types rekordbox can import.
var fileKinds = map[string]string{
	"mp3":  "MP3 File",
	"m4a":  "M4A File",
	"mp4":  "M4A File",
	"aac":  "M4A File",
	"wav":  "WAV File",
	"aif":  "AIFF File",
	"aiff": "AIFF File",
	"flac": "FLAC File",
}

// TrackKind returns the rekordbox Kind for a stored file type. Unknown types are an
// UnsupportedFileType error rather than a silent default.
func TrackKind(fileType string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
	if kind, ok := fileKinds[ext]; ok {
		return kind, nil
	}
	return "", liberr.New(liberr.KindUnsupportedFileType, "translate file type",
		fmt.Errorf("no rekordbox kind for %q", fileType))
}

// SupportedFileType reports whether TrackKind accepts fileType.
func SupportedFileType(fileType string) bool {
	_, err := TrackKind(fileType)
	return err == nil
}

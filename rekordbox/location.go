package rekordbox

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"djconv/liberr"
)

// Filesystem names a path convention.
type Filesystem string

const (
	FilesystemUnix    Filesystem = "unix"
	FilesystemWindows Filesystem = "windows"
)

// ParseFilesystem accepts "unix" or "windows" in any case.
func ParseFilesystem(s string) (Filesystem, error) {
	switch fs := Filesystem(strings.ToLower(strings.TrimSpace(s))); fs {
	case FilesystemUnix, FilesystemWindows:
		return fs, nil
	default:
		return "", fmt.Errorf("unknown filesystem %q (want unix or windows)", s)
	}
}

// LocationPrefix starts every rekordbox track location.
const LocationPrefix = "file://localhost/"

// PathTranslator turns Mixxx track paths into rekordbox Location URIs. When the source and
// target conventions differ, paths are rebased from SourceRoot onto TargetRoot.
type PathTranslator struct {
	SourceFilesystem Filesystem
	TargetFilesystem Filesystem
	SourceRoot       string
	TargetRoot       string
}

func (p PathTranslator) crossesFilesystems() bool {
	src, dst := p.SourceFilesystem, p.TargetFilesystem
	if src == "" {
		src = FilesystemUnix
	}
	if dst == "" {
		dst = src
	}
	return src != dst
}

// Rebase returns location as seen from the target system, with forward slashes.
func (p PathTranslator) Rebase(location string) (string, error) {
	if !p.crossesFilesystems() {
		return location, nil
	}

	src := path.Clean(toSlash(location))
	root := strings.TrimSuffix(path.Clean(toSlash(p.SourceRoot)), "/") + "/"
	if p.SourceRoot == "" || len(src) <= len(root) || !hasPathPrefix(src, root, p.SourceFilesystem) {
		return "", liberr.New(liberr.KindPathNotUnderRoot, "rebase location",
			fmt.Errorf("%q is not under %q", location, p.SourceRoot))
	}

	rel := src[len(root):]
	return strings.TrimSuffix(toSlash(p.TargetRoot), "/") + "/" + rel, nil
}

func hasPathPrefix(s, prefix string, fs Filesystem) bool {
	if fs == FilesystemWindows {
		return strings.EqualFold(s[:len(prefix)], prefix)
	}
	return strings.HasPrefix(s, prefix)
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// Location returns the percent-encoded file URI for a Mixxx track path.
func (p PathTranslator) Location(location string) (string, error) {
	rebased, err := p.Rebase(location)
	if err != nil {
		return "", err
	}
	return EncodeLocation(rebased)
}

// EncodeLocation builds a file://localhost/ URI from an absolute path, escaping each segment
// on its own so separators are never encoded.
func EncodeLocation(p string) (string, error) {
	p = toSlash(p)
	slash := strings.LastIndexByte(p, '/')
	switch {
	case p == "":
		return "", malformedPath(p, errors.New("empty path"))
	case slash < 0:
		return "", malformedPath(p, errors.New("no parent directory"))
	case slash == len(p)-1:
		return "", malformedPath(p, errors.New("no file name"))
	}

	var b strings.Builder
	b.WriteString(LocationPrefix)
	for _, segment := range strings.Split(p[:slash], "/") {
		if segment == "" {
			continue
		}
		b.WriteString(EscapeSegment(segment))
		b.WriteByte('/')
	}
	b.WriteString(EscapeSegment(p[slash+1:]))
	return b.String(), nil
}

func malformedPath(p string, err error) error {
	return liberr.New(liberr.KindMalformedPath, "encode location", fmt.Errorf("%q: %w", p, err))
}

const upperhex = "0123456789ABCDEF"

// EscapeSegment percent-encodes one path segment. Control bytes, non-ASCII bytes, space and
// "#%<>?`{} are escaped; everything else is copied unchanged.
func EscapeSegment(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	out := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			out = append(out, '%', upperhex[c>>4], upperhex[c&15])
		} else {
			out = append(out, c)
		}
	}
	return string(out)
}

func shouldEscape(c byte) bool {
	if c < 0x20 || c >= 0x7f {
		return true
	}
	switch c {
	case ' ', '"', '#', '%', '<', '>', '?', '`', '{', '}':
		return true
	}
	return false
}

package rekordbox

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Encode writes lib as an indented XML document with declaration.
func Encode(w io.Writer, lib *Library) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(lib); err != nil {
		return fmt.Errorf("marshal rekordbox library: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush rekordbox library: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

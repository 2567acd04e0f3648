package world

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"ravaged-planets/internal/errs"
)

// MapDesc is the parsed <mapname>.mapdesc document describing a map:
// display metadata plus the per-player start positions.
type MapDesc struct {
	XMLName     xml.Name       `xml:"mapdesc"`
	Version     int            `xml:"version,attr"`
	Description string         `xml:"description"`
	Author      string         `xml:"author"`
	Size        MapSize        `xml:"size"`
	Players     MapPlayersList `xml:"players"`
}

// MapSize carries the declared map dimensions in terrain vertices.
type MapSize struct {
	Width  int `xml:"width,attr"`
	Height int `xml:"height,attr"`
}

// MapPlayersList wraps the <players> element.
type MapPlayersList struct {
	Players []MapPlayer `xml:"player"`
}

// MapPlayer is one <player no=".." start="x z"/> entry.
type MapPlayer struct {
	No    int    `xml:"no,attr"`
	Start string `xml:"start,attr"`
}

// StartPosition parses the "x z" start attribute.
func (p MapPlayer) StartPosition() (x, z float32, err error) {
	parts := strings.Fields(p.Start)
	if len(parts) != 2 {
		return 0, 0, errs.New(errs.KindParse, "player %d: bad start position %q", p.No, p.Start)
	}
	if _, err := fmt.Sscanf(p.Start, "%f %f", &x, &z); err != nil {
		return 0, 0, errs.Wrap(errs.KindParse, err, "player %d: bad start position %q", p.No, p.Start)
	}
	return x, z, nil
}

// ParseMapDesc decodes a mapdesc document.
func ParseMapDesc(r io.Reader) (*MapDesc, error) {
	var desc MapDesc
	if err := xml.NewDecoder(r).Decode(&desc); err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "mapdesc")
	}
	if desc.Version != 1 {
		return nil, errs.New(errs.KindParse, "mapdesc version %d not supported", desc.Version)
	}
	return &desc, nil
}

// WriteMapDesc encodes a mapdesc document.
func WriteMapDesc(w io.Writer, desc *MapDesc) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errs.Wrap(errs.KindIo, err, "mapdesc")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(desc); err != nil {
		return errs.Wrap(errs.KindIo, err, "mapdesc")
	}
	return nil
}

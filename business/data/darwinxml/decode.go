package darwinxml

import (
	"bytes"
	"encoding/xml"
	"regexp"
)

// nsPrefix matches namespace prefixes of the form nsN: attached to
// element and attribute names. Darwin documents declare a handful of
// these per frame; they carry no semantic meaning for this system and
// are stripped before decoding.
var nsPrefix = regexp.MustCompile(`(</?)ns\d+:`)

// stripAttr matches the same prefix when it appears before an
// attribute name (word-boundary delimited by whitespace or a quote).
var stripAttr = regexp.MustCompile(`([\s"])ns\d+:`)

// StripNamespaces removes nsN: prefixes from a raw Push Port
// document. It is a textual rewrite rather than a namespace-aware
// decode because the prefixes vary frame to frame and Darwin does not
// guarantee a stable mapping; stripping them textually is simpler and
// matches how this system has always treated them (noise, not
// signal).
func StripNamespaces(doc []byte) []byte {
	doc = nsPrefix.ReplaceAll(doc, []byte("$1"))
	doc = stripAttr.ReplaceAll(doc, []byte("$1"))
	return doc
}

// Decode strips namespace prefixes and unmarshals a Push Port
// document. Unknown elements and attributes are tolerated by
// encoding/xml's default behavior of ignoring anything the struct
// doesn't declare a field for.
func Decode(doc []byte) (*PushPort, error) {
	clean := StripNamespaces(doc)
	var pp PushPort
	if err := xml.Unmarshal(clean, &pp); err != nil {
		return nil, err
	}
	return &pp, nil
}

// DecodeReader is a convenience wrapper for callers holding a
// bytes.Buffer (the common case after gunzip).
func DecodeReader(buf *bytes.Buffer) (*PushPort, error) {
	return Decode(buf.Bytes())
}

// Package xmlgroup implements the sibling-element grouping pass required
// before the forecast document can be unmarshaled into slices keyed by
// tag name.
//
// It re-encodes the document token by token, in order, outside each
// <parameters ...> span (the output is equivalent XML, not a byte-for-byte
// copy); inside one, same-named children are stably reordered so they
// become contiguous, alphabetically by tag name, without touching
// attributes, content, or whitespace within a child element. Whitespace
// between the children of <parameters> is dropped.
package xmlgroup

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

const parametersTag = "parameters"

// Group reads the forecast XML from r and writes the grouped document to
// w. It returns an error only for malformed XML; grouping itself never
// changes element content.
func Group(r io.Reader, w io.Writer) error {
	dec := xml.NewDecoder(r)
	enc := xml.NewEncoder(w)
	defer enc.Flush()

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return enc.Flush()
		}
		if err != nil {
			return fmt.Errorf("xmlgroup: decode: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == parametersTag {
			if err := groupParameters(dec, enc, se); err != nil {
				return err
			}
			continue
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return fmt.Errorf("xmlgroup: encode: %w", err)
		}
	}
}

// child is one direct child element of <parameters>, captured as a
// self-contained token sequence (start .. end, inclusive) plus its tag
// name for stable sorting.
type child struct {
	name   string
	tokens []xml.Token
}

func groupParameters(dec *xml.Decoder, enc *xml.Encoder, open xml.StartElement) error {
	if err := enc.EncodeToken(xml.CopyToken(open)); err != nil {
		return fmt.Errorf("xmlgroup: encode <parameters>: %w", err)
	}

	var children []child
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("xmlgroup: decode inside <parameters>: %w", err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == parametersTag {
				writeGrouped(children, enc)
				return enc.EncodeToken(xml.CopyToken(t))
			}
			// Stray end tag at this depth would be malformed input.
			return fmt.Errorf("xmlgroup: unexpected </%s> inside <parameters>", t.Name.Local)
		case xml.StartElement:
			c, err := captureChild(dec, t)
			if err != nil {
				return err
			}
			children = append(children, c)
		case xml.CharData:
			// Whitespace between children is dropped; it is
			// regenerated by the encoder's indentation (none here,
			// matching the flattener's tolerance for reformatted
			// whitespace inside <parameters>).
		default:
			// Comments/PIs inside <parameters> are rare in NOAA feeds;
			// preserve them attached to no particular child by just
			// re-emitting in place.
			if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
				return err
			}
		}
	}
}

// captureChild reads a fully-formed child element (including nested
// content) starting from its already-consumed StartElement token.
func captureChild(dec *xml.Decoder, start xml.StartElement) (child, error) {
	tokens := []xml.Token{xml.CopyToken(start)}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return child{}, fmt.Errorf("xmlgroup: decode child <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			tokens = append(tokens, xml.CopyToken(t))
		case xml.EndElement:
			depth--
			tokens = append(tokens, xml.CopyToken(t))
		default:
			tokens = append(tokens, xml.CopyToken(tok))
		}
	}
	return child{name: start.Name.Local, tokens: tokens}, nil
}

func writeGrouped(children []child, enc *xml.Encoder) {
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].name < children[j].name
	})
	for _, c := range children {
		for _, tok := range c.tokens {
			_ = enc.EncodeToken(tok)
		}
	}
}

// IsErrorResponse detects the upstream error-response document
// (root tag <error> rather than <dwml>) without a full parse.
func IsErrorResponse(doc []byte) bool {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local == "error"
		}
	}
}

package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
)

// PPTXExtractor reads the derivative .pptx: each slide in deck order,
// each shape's text frame, then any table the shape carries. The slide
// deck has no grid-offset failure mode, so any structural breakage is
// treated as a parse failure for the whole document.
type PPTXExtractor struct{}

func (e *PPTXExtractor) Extract(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: "pptx", Err: err}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Format: "pptx", Err: err}
	}

	parts, err := slideParts(zr)
	if err != nil {
		return nil, &ParseError{Format: "pptx", Err: err}
	}

	var fragments []string
	for _, part := range parts {
		slide, err := openPart(zr, part)
		if err != nil {
			return nil, &ParseError{Format: "pptx", Err: err}
		}
		fragments = append(fragments, slideText(slide)...)
	}
	return buildResult(fragments), nil
}

// slideParts resolves the deck's slide order: sldIdLst in
// ppt/presentation.xml gives the sequence, the presentation rels part
// maps each relationship id to its slide part name.
func slideParts(zr *zip.Reader) ([]string, error) {
	pres, err := openPart(zr, "ppt/presentation.xml")
	if err != nil {
		return nil, err
	}
	rels, err := openPart(zr, "ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil, err
	}

	targets := make(map[string]string)
	for _, rel := range xmlquery.Find(rels, "//*[local-name()='Relationship']") {
		targets[rel.SelectAttr("Id")] = rel.SelectAttr("Target")
	}

	var parts []string
	for _, sld := range xmlquery.Find(pres, "//*[local-name()='sldIdLst']/*[local-name()='sldId']") {
		rid := relationshipID(sld)
		target, ok := targets[rid]
		if !ok || target == "" {
			return nil, fmt.Errorf("slide relationship %q has no target", rid)
		}
		if strings.HasPrefix(target, "/") {
			parts = append(parts, strings.TrimPrefix(target, "/"))
		} else {
			parts = append(parts, path.Join("ppt", target))
		}
	}
	return parts, nil
}

// relationshipID returns the r:id attribute of a sldId element. The
// element also carries an unprefixed id attribute, so only the
// namespaced one counts.
func relationshipID(n *xmlquery.Node) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == "id" && attr.Name.Space != "" {
			return attr.Value
		}
	}
	return ""
}

// slideText walks every shape on a slide in markup order. A text-frame
// shape contributes its frame text; a graphic frame contributes its
// table cells row by row.
func slideText(slide *xmlquery.Node) []string {
	var fragments []string
	for _, shape := range xmlquery.Find(slide, "//*[local-name()='sp' or local-name()='graphicFrame']") {
		if shape.Data == "sp" {
			if tx := xmlquery.FindOne(shape, "./*[local-name()='txBody']"); tx != nil {
				fragments = append(fragments, textBodyText(tx))
			}
			continue
		}
		for _, tbl := range xmlquery.Find(shape, ".//*[local-name()='tbl']") {
			for _, row := range xmlquery.Find(tbl, "./*[local-name()='tr']") {
				for _, cell := range xmlquery.Find(row, "./*[local-name()='tc']") {
					if tx := xmlquery.FindOne(cell, ".//*[local-name()='txBody']"); tx != nil {
						fragments = append(fragments, textBodyText(tx))
					}
				}
			}
		}
	}
	return fragments
}

// textBodyText joins a text body's paragraphs with line breaks, each
// paragraph being the concatenation of its literal text runs.
func textBodyText(tx *xmlquery.Node) string {
	var paragraphs []string
	for _, p := range xmlquery.Find(tx, "./*[local-name()='p']") {
		var buf strings.Builder
		for _, t := range xmlquery.Find(p, ".//*[local-name()='t']") {
			buf.WriteString(t.InnerText())
		}
		paragraphs = append(paragraphs, buf.String())
	}
	return strings.Join(paragraphs, "\n")
}

func openPart(zr *zip.Reader, name string) (*xmlquery.Node, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", name, err)
	}
	defer f.Close()
	node, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse part %s: %w", name, err)
	}
	return node, nil
}

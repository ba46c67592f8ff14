package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const odfContentPart = "content.xml"

var (
	// odfBlock matches a paragraph or heading with its closing tag.
	odfBlock = regexp.MustCompile(`(?s)<text:(?:p|h)[ >].*?</text:(?:p|h)>`)
	// odfMarkup matches any element tag inside a block.
	odfMarkup = regexp.MustCompile(`<[^>]+>`)
	// odfBreak matches inline elements that stand for whitespace.
	odfBreak = regexp.MustCompile(`<text:(?:s|tab|line-break)\b[^>]*/>`)
)

// extractODP returns the text of an OpenDocument presentation.
func extractODP(content []byte) (string, error) {
	return extractODF(content, "ODP")
}

// extractODS returns the cell text of an OpenDocument spreadsheet.
func extractODS(content []byte) (string, error) {
	return extractODF(content, "ODS")
}

// extractODF reads content.xml and returns one line per text:p or text:h
// in document order. Spans and links inside a paragraph stay on its line.
func extractODF(content []byte, kind string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	doc, err := readZipPart(zr, odfContentPart)
	if err != nil {
		return "", fmt.Errorf("extract %s: %s: %w", kind, odfContentPart, err)
	}

	var lines []string
	for _, block := range odfBlock.FindAllString(string(doc), -1) {
		text := odfBreak.ReplaceAllString(block, " ")
		text = html.UnescapeString(odfMarkup.ReplaceAllString(text, ""))
		if line := strings.Join(strings.Fields(text), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

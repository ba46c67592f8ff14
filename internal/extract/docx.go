package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultPart     = "word/document.xml"
	docxContentTypes    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// wpTag matches one paragraph, including self-closing empty ones.
	wpTag = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>|<w:p/>`)
	// wtTag matches one text run with any attributes.
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// overrideTag matches an Override element in [Content_Types].xml.
	overrideTag  = regexp.MustCompile(`<Override\s[^>]*>`)
	partNameAttr = regexp.MustCompile(`PartName="([^"]+)"`)
)

var errPartNotFound = errors.New("part not found")

// extractDOCX extracts text from .docx bytes. Paragraphs (<w:p>) become lines
// and the runs (<w:t>) inside a paragraph are concatenated, so each line is a
// passage candidate. lu4p/cat only matches <w:p> without attributes and
// returns nothing for most real documents, so DOCX is read directly.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	part := docxMainPart(zr)
	docXML, err := readZipPart(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %s: %w", part, err)
	}

	return strings.Join(runLines(string(docXML), wpTag, wtTag), "\n"), nil
}

// docxMainPart returns the main document part named in [Content_Types].xml,
// or word/document.xml when none is declared.
func docxMainPart(zr *zip.Reader) string {
	types, err := readZipPart(zr, docxContentTypes)
	if err != nil {
		return docxDefaultPart
	}
	for _, tag := range overrideTag.FindAllString(string(types), -1) {
		if !strings.Contains(tag, `ContentType="`+docxMainContentType+`"`) {
			continue
		}
		if m := partNameAttr.FindStringSubmatch(tag); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return docxDefaultPart
}

func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errPartNotFound
}

package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// slidePart matches ppt/slides/slideN.xml and captures N.
	slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	// apTag matches one DrawingML paragraph.
	apTag = regexp.MustCompile(`(?s)<a:p[ >].*?</a:p>`)
	atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

// extractPPTX returns the text of a .pptx in slide order, one line per
// paragraph. Slides are separated by a blank line so the splitter keeps them
// apart.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePart.FindStringSubmatch(path.Clean(f.Name))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var blocks []string
	for _, s := range slides {
		xml, err := readZipPart(zr, s.file.Name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %s: %w", s.file.Name, err)
		}
		if lines := runLines(string(xml), apTag, atTag); len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// runLines joins the text runs of each paragraph matched by para into one
// line, dropping empty paragraphs.
func runLines(doc string, para, run *regexp.Regexp) []string {
	var lines []string
	for _, p := range para.FindAllString(doc, -1) {
		var b strings.Builder
		for _, r := range run.FindAllStringSubmatch(p, -1) {
			b.WriteString(html.UnescapeString(r[1]))
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

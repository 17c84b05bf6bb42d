package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PPTX is a ZIP containing one XML document per slide (Office Open XML).
// Visible text lives in <a:t> runs inside each slide.
const pptxSlidePrefix = "ppt/slides/slide"

var (
	atTag      = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	slideIndex = regexp.MustCompile(`slide(\d+)\.xml$`)
)

func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, pptxSlidePrefix) && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	// Numeric order by slide index: slide2.xml before slide10.xml.
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})

	var texts []string
	for _, f := range slides {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract PPTX: open %s: %w", f.Name, err)
		}
		var slideBuf bytes.Buffer
		if _, err := slideBuf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return "", fmt.Errorf("extract PPTX: read %s: %w", f.Name, err)
		}
		_ = rc.Close()

		var runs []string
		for _, m := range atTag.FindAllStringSubmatch(slideBuf.String(), -1) {
			runs = append(runs, unescapeXML(m[1]))
		}
		if slideText := strings.TrimSpace(strings.Join(runs, "\n")); slideText != "" {
			texts = append(texts, slideText)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n\n")), nil
}

func slideNumber(name string) int {
	m := slideIndex.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&amp;", "&",
)

func unescapeXML(s string) string { return xmlEntities.Replace(s) }

package report

import (
	"bufio"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// writePDF lays out the Markdown rendering of the report line by line:
// headings in bold, fenced blocks in a monospace font, everything else as
// wrapped paragraphs.
func writePDF(path string, data reportData) error {
	markdown, err := renderMarkdown(data)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Knowledge Base Analysis Report", false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	inFence := false
	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s := strings.TrimSpace(line)

		if strings.HasPrefix(s, "```") {
			inFence = !inFence
			if inFence {
				pdf.SetFont("Courier", "", 9)
			} else {
				pdf.SetFont("Helvetica", "", 11)
			}
			continue
		}
		if inFence {
			pdf.MultiCell(0, 4, tr(line), "", "L", false)
			continue
		}

		switch {
		case s == "":
			pdf.Ln(3)
		case s == "---":
			y := pdf.GetY() + 2
			pdf.Line(10, y, 200, y)
			pdf.Ln(5)
		case strings.HasPrefix(s, "#"):
			level := len(s) - len(strings.TrimLeft(s, "#"))
			text := strings.TrimSpace(s[level:])
			if text == "" {
				continue
			}
			size := 16.0
			switch {
			case level == 2:
				size = 14
			case level >= 3:
				size = 12
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, 7, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		case strings.HasPrefix(s, "|"):
			pdf.SetFont("Courier", "", 8)
			pdf.MultiCell(0, 4, tr(s), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		default:
			pdf.MultiCell(0, 5, tr(strings.ReplaceAll(s, "**", "")), "", "L", false)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return pdf.OutputFileAndClose(path)
}

package content

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"kb-analyzer/pkg/domain"
)

// ErrLegacyWordFormat is returned for binary (OLE2) .doc files, which cannot be read.
var ErrLegacyWordFormat = errors.New("legacy binary word format is not supported")

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Metadata keys specific to Word documents.
const (
	MetaCreated  = "created"
	MetaModified = "modified"
)

// CoreProperties holds the docProps/core.xml fields we care about.
// Available is false when the archive has no readable core properties.
type CoreProperties struct {
	Available bool
	Title     string
	Author    string
	Created   *time.Time
	Modified  *time.Time
}

type coreXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

// ExtractWord reads an Office Open XML document. Body paragraphs come first,
// one per line with empty paragraphs kept as blank lines, followed by table
// rows with cells separated by a space.
func ExtractWord(path string) (domain.Article, error) {
	if path == "" {
		return domain.Article{}, errEmptyPath
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		if isOLE(path) {
			return domain.Article{}, fmt.Errorf("%w: %s", ErrLegacyWordFormat, path)
		}
		return domain.Article{}, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	docFile := findZipFile(&r.Reader, "word/document.xml")
	if docFile == nil {
		return domain.Article{}, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return domain.Article{}, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	paragraphs, rows, err := parseDocumentXML(rc)
	if err != nil {
		return domain.Article{}, fmt.Errorf("parse document.xml: %w", err)
	}

	props := readCoreProperties(&r.Reader)

	meta := map[string]any{
		domain.MetaTitle:  fileStem(path),
		domain.MetaAuthor: props.Author,
		MetaCreated:       "",
		MetaModified:      "",
	}
	if props.Created != nil {
		meta[MetaCreated] = props.Created.Format(time.RFC3339)
		meta[domain.MetaCreatedAt] = *props.Created
	}
	if props.Modified != nil {
		meta[MetaModified] = props.Modified.Format(time.RFC3339)
		meta[domain.MetaUpdatedAt] = *props.Modified
	}

	lines := append(paragraphs, rows...)
	return domain.Article{
		Path:     path,
		Content:  strings.Join(lines, "\n"),
		Metadata: meta,
		FileType: domain.FileTypeWord,
	}, nil
}

func findZipFile(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func isOLE(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(oleSignature))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, oleSignature)
}

// parseDocumentXML walks the WordprocessingML body. Paragraphs inside tables
// are collected per cell; nested tables fold into their outer cell. Tabs and
// breaks count only inside runs, so tab stop definitions add nothing.
func parseDocumentXML(r io.Reader) (paragraphs, rows []string, err error) {
	decoder := xml.NewDecoder(r)

	var (
		para      strings.Builder
		inText    bool
		inRun     bool
		tblDepth  int
		cellParas []string
		rowCells  []string
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					rowCells = nil
				}
			case "tc":
				if tblDepth == 1 {
					cellParas = nil
				}
			case "p":
				para.Reset()
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				if inRun {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					para.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				text := para.String()
				para.Reset()
				if tblDepth == 0 {
					paragraphs = append(paragraphs, text)
				} else {
					cellParas = append(cellParas, text)
				}
			case "tc":
				if tblDepth == 1 {
					rowCells = append(rowCells, strings.Join(cellParas, "\n"))
				}
			case "tr":
				if tblDepth == 1 {
					rows = append(rows, strings.Join(rowCells, " "))
				}
			case "tbl":
				tblDepth--
			}
		}
	}

	return paragraphs, rows, nil
}

// readCoreProperties reads docProps/core.xml. Failures leave Available false.
func readCoreProperties(r *zip.Reader) CoreProperties {
	f := findZipFile(r, "docProps/core.xml")
	if f == nil {
		return CoreProperties{}
	}

	rc, err := f.Open()
	if err != nil {
		return CoreProperties{}
	}
	defer rc.Close()

	var raw coreXML
	if err := xml.NewDecoder(rc).Decode(&raw); err != nil {
		return CoreProperties{}
	}

	props := CoreProperties{
		Available: true,
		Title:     strings.TrimSpace(raw.Title),
		Author:    strings.TrimSpace(raw.Creator),
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.Created)); err == nil {
		props.Created = &t
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.Modified)); err == nil {
		props.Modified = &t
	}
	return props
}

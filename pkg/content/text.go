package content

import "kb-analyzer/pkg/domain"

// ExtractPlainText reads a UTF-8 text file verbatim.
func ExtractPlainText(path string) (domain.Article, error) {
	text, err := readUTF8(path)
	if err != nil {
		return domain.Article{}, err
	}

	meta, err := fileMetadata(path)
	if err != nil {
		return domain.Article{}, err
	}

	return domain.Article{
		Path:     path,
		Content:  text,
		Metadata: meta,
		FileType: domain.FileTypeText,
	}, nil
}

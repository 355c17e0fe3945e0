package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// TextExtractor turns an uploaded document into plain text. The concrete
// implementation is an external collaborator from the pipeline's point
// of view and stays swappable behind this interface.
type TextExtractor interface {
	ExtractText(r io.Reader) (string, error)
}

// PDFExtractor extracts text from PDF documents, concatenating all pages
// in document order.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (PDFExtractor) ExtractText(r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	encrypted, err := pdfReader.IsEncrypted()
	if err != nil {
		return "", fmt.Errorf("checking pdf encryption: %w", err)
	}
	if encrypted {
		ok, err := pdfReader.Decrypt([]byte(""))
		if err != nil {
			return "", fmt.Errorf("decrypting pdf: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("pdf is password protected")
		}
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("reading pdf page count: %w", err)
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}
		pages = append(pages, pageText)
	}

	return joinPages(pages), nil
}

// joinPages terminates every page with a newline so the last line of
// one page cannot fuse with the first line of the next; downstream
// field extraction is line-based.
func joinPages(pages []string) string {
	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return sb.String()
}

package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/text/encoding/charmap"
)

// textTypes are decoded as UTF-8, falling back to Latin-1.
var textTypes = map[string]struct{}{
	"CSV":      {},
	"JSON":     {},
	"TXT":      {},
	"SQL":      {},
	"LOG":      {},
	"MARKDOWN": {},
	"HTML":     {},
	"XML":      {},
	"YAML":     {},
}

// Extractor converts document bytes into plain text
type Extractor struct{}

var _ interfaces.TextExtractor = (*Extractor)(nil)

// New creates an Extractor
func New() *Extractor {
	return &Extractor{}
}

// Supported reports whether formatHint can be extracted
func Supported(formatHint string) bool {
	switch formatHint {
	case "PDF", "DOCX", "PPTX", "XLSX":
		return true
	}
	_, ok := textTypes[formatHint]
	return ok
}

// Extract never returns an error; failures come back as model.ExtractionFailed.
func (x *Extractor) Extract(ctx context.Context, data []byte, formatHint string) model.Extraction {
	if err := ctx.Err(); err != nil {
		return model.ExtractionFailed(err.Error())
	}

	hint := strings.ToUpper(strings.TrimSpace(formatHint))
	if !Supported(hint) {
		return model.ExtractionFailed(fmt.Sprintf("unsupported file type: %s", hint))
	}
	if len(data) == 0 {
		return model.ExtractionFailed("empty file")
	}

	var (
		text string
		err  error
	)
	switch hint {
	case "PDF":
		text, err = extractPDF(data)
	case "DOCX", "PPTX", "XLSX":
		text, err = extractOOXML(data, hint)
	default:
		text = decodeText(data)
	}
	if err != nil {
		logging.From(ctx).Warn("failed to extract text", "format", hint, "error", err)
		return model.ExtractionFailed(fmt.Sprintf("failed to extract %s text: %s", hint, err.Error()))
	}

	return model.ExtractedText(text)
}

// decodeText decodes UTF-8 when valid and Latin-1 otherwise.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(decoded)
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("malformed pdf", goerr.Value("panic", fmt.Sprint(r)))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open pdf")
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", goerr.Wrap(err, "failed to read pdf text")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", goerr.Wrap(err, "failed to copy pdf text")
	}
	return buf.String(), nil
}

// ooxmlParts selects the XML parts holding text for each OOXML format.
func ooxmlParts(hint, name string) bool {
	switch hint {
	case "DOCX":
		return name == "word/document.xml"
	case "PPTX":
		return strings.HasPrefix(name, "ppt/slides/slide") && path.Ext(name) == ".xml"
	case "XLSX":
		return name == "xl/sharedStrings.xml"
	}
	return false
}

func extractOOXML(data []byte, hint string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open office archive")
	}

	var files []*zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if ooxmlParts(hint, name) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return "", goerr.New("no text part in office archive", goerr.Value("format", hint))
	}
	sort.Slice(files, func(i, j int) bool {
		return partOrder(files[i].Name) < partOrder(files[j].Name)
	})

	var sb strings.Builder
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return "", goerr.Wrap(err, "failed to open archive part", goerr.Value("part", f.Name))
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", goerr.Wrap(err, "failed to read archive part", goerr.Value("part", f.Name))
		}

		text, err := stripXML(raw)
		if err != nil {
			return "", goerr.Wrap(err, "failed to parse archive part", goerr.Value("part", f.Name))
		}
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

// partOrder sorts slide1.xml before slide10.xml.
func partOrder(name string) string {
	base := strings.TrimSuffix(path.Base(name), ".xml")
	i := strings.IndexFunc(base, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return base
	}
	digits := base[i:]
	if len(digits) < 8 {
		digits = strings.Repeat("0", 8-len(digits)) + digits
	}
	return base[:i] + digits
}

// stripXML keeps character data and turns paragraph, break and cell ends into newlines.
func stripXML(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "br", "si":
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
			case "tab":
				sb.WriteString("\t")
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

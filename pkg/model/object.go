package model

import (
	"path"
	"strings"
	"time"
)

// ObjectInfo is one entry of an object store listing.
type ObjectInfo struct {
	Key          string
	IsFolder     bool
	Size         int64
	LastModified time.Time
}

// Extraction is the outcome of text extraction: either text or a failure reason.
type Extraction struct {
	text   string
	reason string
	failed bool
}

// ExtractedText wraps successfully extracted text.
func ExtractedText(text string) Extraction {
	return Extraction{text: text}
}

// ExtractionFailed records why extraction did not produce text.
func ExtractionFailed(reason string) Extraction {
	return Extraction{reason: reason, failed: true}
}

// extractionErrorPrefix is the legacy convention for signalling failure in-band.
const extractionErrorPrefix = "Error:"

// ParseExtraction converts a legacy extractor string, where failures are
// reported as text starting with "Error:", into an Extraction.
func ParseExtraction(raw string) Extraction {
	if strings.HasPrefix(strings.TrimSpace(raw), extractionErrorPrefix) {
		return ExtractionFailed(strings.TrimSpace(raw))
	}
	return ExtractedText(raw)
}

// Failed reports whether extraction failed or produced only whitespace.
func (e Extraction) Failed() bool {
	return e.failed || strings.TrimSpace(e.text) == ""
}

func (e Extraction) Text() string { return e.text }

// Reason returns the failure reason, or a generic one for empty text.
func (e Extraction) Reason() string {
	if e.failed {
		return e.reason
	}
	if strings.TrimSpace(e.text) == "" {
		return "no text could be extracted"
	}
	return ""
}

var fileTypes = map[string]string{
	"CSV":     "CSV",
	"JSON":    "JSON",
	"PARQUET": "PARQUET",
	"TXT":     "TXT",
	"LOG":     "LOG",
	"SQL":     "SQL",
	"XML":     "XML",
	"YAML":    "YAML",
	"YML":     "YAML",
	"PDF":     "PDF",
	"DOCX":    "DOCX",
	"DOC":     "DOC",
	"PPTX":    "PPTX",
	"PPT":     "PPT",
	"XLSX":    "XLSX",
	"XLS":     "XLS",
	"MD":      "MARKDOWN",
	"HTML":    "HTML",
	"HTM":     "HTML",
}

// FileType derives the format hint of a key from its extension.
func FileType(key string) string {
	ext := strings.TrimPrefix(path.Ext(key), ".")
	if ext == "" {
		return "UNKNOWN"
	}
	ext = strings.ToUpper(ext)
	if t, ok := fileTypes[ext]; ok {
		return t
	}
	return ext
}

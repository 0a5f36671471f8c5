package extract_test

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/m-mizutani/docaudit/pkg/service/extract"
	"github.com/m-mizutani/gt"
)

func buildArchive(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		gt.NoError(t, err)
		_, err = w.Write([]byte(content))
		gt.NoError(t, err)
	}
	gt.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	x := extract.New()
	ctx := context.Background()

	t.Run("utf-8", func(t *testing.T) {
		got := x.Extract(ctx, []byte("Quarterly report – Zürich"), "TXT")
		gt.False(t, got.Failed())
		gt.Equal(t, got.Text(), "Quarterly report – Zürich")
	})

	t.Run("byte order mark is dropped", func(t *testing.T) {
		got := x.Extract(ctx, []byte("\xef\xbb\xbfid,name\n1,a"), "CSV")
		gt.Equal(t, got.Text(), "id,name\n1,a")
	})

	t.Run("latin-1 fallback", func(t *testing.T) {
		got := x.Extract(ctx, []byte{'c', 'a', 'f', 0xe9}, "log")
		gt.False(t, got.Failed())
		gt.Equal(t, got.Text(), "café")
	})

	t.Run("whitespace only fails", func(t *testing.T) {
		got := x.Extract(ctx, []byte("  \n\t"), "TXT")
		gt.True(t, got.Failed())
		gt.Equal(t, got.Reason(), "no text could be extracted")
	})

	t.Run("empty file fails", func(t *testing.T) {
		got := x.Extract(ctx, nil, "JSON")
		gt.True(t, got.Failed())
		gt.Equal(t, got.Reason(), "empty file")
	})
}

func TestExtractUnsupported(t *testing.T) {
	got := extract.New().Extract(context.Background(), []byte{0x00, 0x01}, "PARQUET")
	gt.True(t, got.Failed())
	gt.Equal(t, got.Reason(), "unsupported file type: PARQUET")

	gt.False(t, extract.Supported("DOC"))
	gt.True(t, extract.Supported("MARKDOWN"))
}

func TestExtractDOCX(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml": `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Non-disclosure agreement</w:t></w:r></w:p>
<w:p><w:r><w:t>Between</w:t></w:r><w:r><w:tab/><w:t>Acme</w:t></w:r></w:p>
</w:body>
</w:document>`,
	})

	got := extract.New().Extract(context.Background(), data, "DOCX")
	gt.False(t, got.Failed())
	gt.S(t, got.Text()).Contains("Non-disclosure agreement")
	gt.S(t, got.Text()).Contains("Between\tAcme")
}

func TestExtractPPTXSlideOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sld>`
	}
	data := buildArchive(t, map[string]string{
		"ppt/slides/slide10.xml": slide("ten"),
		"ppt/slides/slide2.xml":  slide("two"),
		"ppt/slides/slide1.xml":  slide("one"),
	})

	got := extract.New().Extract(context.Background(), data, "PPTX")
	gt.False(t, got.Failed())
	gt.Equal(t, got.Text(), "one\ntwo\nten")
}

func TestExtractCorrupt(t *testing.T) {
	x := extract.New()
	ctx := context.Background()

	t.Run("docx that is not a zip", func(t *testing.T) {
		got := x.Extract(ctx, []byte("plain text"), "DOCX")
		gt.True(t, got.Failed())
		gt.S(t, got.Reason()).Contains("failed to extract DOCX text")
	})

	t.Run("docx without document part", func(t *testing.T) {
		got := x.Extract(ctx, buildArchive(t, map[string]string{"other.xml": "<a/>"}), "DOCX")
		gt.True(t, got.Failed())
	})

	t.Run("pdf", func(t *testing.T) {
		got := x.Extract(ctx, []byte("%PDF-1.4 truncated"), "PDF")
		gt.True(t, got.Failed())
		gt.S(t, got.Reason()).Contains("failed to extract PDF text")
	})
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := extract.New().Extract(ctx, []byte("text"), "TXT")
	gt.True(t, got.Failed())
}

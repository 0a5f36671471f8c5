package quality

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/score.md
var scorePromptRaw string

var scorePromptTmpl = template.Must(template.New("score").Funcs(template.FuncMap{
	"last": func(i int, list []model.DimensionName) bool { return i == len(list)-1 },
}).Parse(scorePromptRaw))

// MaxPromptContentRunes bounds the document text sent to the model.
const MaxPromptContentRunes = 10000

// BuildPrompt renders the scoring prompt for a document.
func BuildPrompt(text, fileName string) (string, error) {
	var buf bytes.Buffer
	if err := scorePromptTmpl.Execute(&buf, map[string]any{
		"FileName":   fileName,
		"Content":    Truncate(text, MaxPromptContentRunes),
		"Dimensions": model.Dimensions,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute score prompt template", goerr.V("file_name", fileName))
	}
	return buf.String(), nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

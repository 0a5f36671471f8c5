package cli

import (
	"encoding/json"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

func formatFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "format",
		Aliases:     []string{"f"},
		Usage:       "Output format (yaml, json)",
		Value:       formatYAML,
		Sources:     cli.EnvVars("DOCAUDIT_FORMAT"),
		Destination: dst,
	}
}

// render writes v to w in the requested format
func render(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return goerr.Wrap(err, "failed to encode JSON output")
		}
		return nil

	case formatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return goerr.Wrap(err, "failed to encode YAML output")
		}
		if err := enc.Close(); err != nil {
			return goerr.Wrap(err, "failed to flush YAML output")
		}
		return nil

	default:
		return goerr.New("unknown output format", goerr.Value("format", format))
	}
}

package measure

import (
	"bytes"
	"fmt"
	"io"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	yaml "gopkg.in/yaml.v3"

	"rflow/config"
)

// Writer formats measure results.
type Writer struct {
	format config.ReportFormat
	line   *template.Template
}

// NewWriter prepares writer, line template is only used for text format.
func NewWriter(format config.ReportFormat, lineTemplate string) (*Writer, error) {
	w := &Writer{format: format}
	if format != config.ReportFormatText {
		return w, nil
	}
	tmpl, err := template.New("line").Funcs(sprig.FuncMap()).Option("missingkey=error").Parse(lineTemplate)
	if err != nil {
		return nil, fmt.Errorf("unable to parse report line template: %w", err)
	}
	w.line = tmpl
	return w, nil
}

// Write outputs results of all works.
func (w *Writer) Write(out io.Writer, works []WorkResult) error {
	if w.format == config.ReportFormatYaml {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(works); err != nil {
			return fmt.Errorf("unable to encode results: %w", err)
		}
		return enc.Close()
	}

	buf := new(bytes.Buffer)
	for i, wr := range works {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := w.text(buf, &wr); err != nil {
			return err
		}
	}
	_, err := out.Write(buf.Bytes())
	return err
}

func (w *Writer) text(buf *bytes.Buffer, wr *WorkResult) error {
	title := wr.Title
	if len(title) == 0 {
		title = wr.Source
	}
	fmt.Fprintf(buf, "%s (%s)\n", title, wr.Source)
	if len(wr.Error) > 0 {
		fmt.Fprintf(buf, "  error: %s\n", wr.Error)
	}
	for _, u := range wr.Units {
		if len(u.Error) > 0 {
			fmt.Fprintf(buf, "%4d %s error: %s\n", u.Index, u.Href, u.Error)
			continue
		}
		if err := w.line.Execute(buf, u); err != nil {
			return fmt.Errorf("unable to execute report line template: %w", err)
		}
		buf.WriteByte('\n')
	}
	if len(wr.Units) > 0 {
		fmt.Fprintf(buf, "total: %d units, %d columns, %d spreads\n", len(wr.Units), wr.Columns, wr.Spreads)
	}
	return nil
}

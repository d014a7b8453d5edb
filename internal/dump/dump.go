// Package dump renders model objects as readable text for logs and the CLI.
//
// Values are first marshaled to JSON, so anything with a MarshalJSON method
// (observable maps and lists included) dumps as its contents. Redaction and
// subtree selection then operate on the JSON document by gjson path before
// it is formatted as indented JSON or YAML.
package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// Mask replaces redacted values.
const Mask = "***"

// ErrPathNotFound indicates a DumpPath selector matched nothing.
var ErrPathNotFound = errors.New("path not found")

// Format is the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Dumper formats values.
type Dumper struct {
	format Format
	indent int
	color  bool
	redact []string
}

// Option configures a Dumper.
type Option func(*Dumper)

// WithFormat sets the output encoding.
func WithFormat(f Format) Option {
	return func(d *Dumper) {
		if f == FormatJSON || f == FormatYAML {
			d.format = f
		}
	}
}

// WithIndent sets spaces per nesting level. Zero produces compact JSON.
func WithIndent(n int) Option {
	return func(d *Dumper) {
		if n >= 0 {
			d.indent = n
		}
	}
}

// WithColor enables ANSI colors for JSON output.
func WithColor(on bool) Option {
	return func(d *Dumper) {
		d.color = on
	}
}

// WithRedact masks the values at the given gjson paths.
func WithRedact(paths ...string) Option {
	return func(d *Dumper) {
		d.redact = append(d.redact, paths...)
	}
}

// New creates a Dumper. The default is two-space indented JSON.
func New(opts ...Option) *Dumper {
	d := &Dumper{format: FormatJSON, indent: 2}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dump renders v.
func (d *Dumper) Dump(v any) ([]byte, error) {
	data, err := d.document(v)
	if err != nil {
		return nil, err
	}
	return d.render(data)
}

// DumpPath renders the part of v selected by a gjson path.
func (d *Dumper) DumpPath(v any, path string) ([]byte, error) {
	data, err := d.document(v)
	if err != nil {
		return nil, err
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return d.render([]byte(res.Raw))
}

// String renders v for a log line. Failures are rendered inline.
func (d *Dumper) String(v any) string {
	out, err := d.Dump(v)
	if err != nil {
		return fmt.Sprintf("<dump error: %v>", err)
	}
	return strings.TrimRight(string(out), "\n")
}

func (d *Dumper) document(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	for _, p := range d.redact {
		if !gjson.GetBytes(data, p).Exists() {
			continue
		}
		data, err = sjson.SetBytes(data, p, Mask)
		if err != nil {
			return nil, fmt.Errorf("redact %s: %w", p, err)
		}
	}
	return data, nil
}

func (d *Dumper) render(data []byte) ([]byte, error) {
	if d.format == FormatYAML {
		return toYAML(data, d.indent)
	}
	var out []byte
	if d.indent == 0 {
		out = pretty.Ugly(data)
	} else {
		out = pretty.PrettyOptions(data, &pretty.Options{
			Width:  80,
			Indent: strings.Repeat(" ", d.indent),
		})
	}
	if d.color {
		out = pretty.Color(out, nil)
	}
	return out, nil
}

// toYAML re-encodes a JSON document as block-style YAML, keeping key order.
func toYAML(data []byte, indent int) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	blockStyle(&node)

	if indent < 2 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

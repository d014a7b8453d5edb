package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/bindkit/internal/observable"
	"github.com/dshills/bindkit/internal/property"
)

func newEvalCommand(c *cli) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "eval <document> <path>",
		Short: "Evaluate a property path or expression against a document",
		Long: highlight("bindkit eval <document> <path>") + "\n\n" +
			"Loads a YAML or JSON document into observable maps and lists and\n" +
			"prints the value at a property path such as spec.replicas, or the\n" +
			"result of an expression such as ${spec.replicas * 2}.\n",
		Example: "  bindkit eval deploy.yaml metadata.name\n" +
			"  bindkit eval deploy.yaml '${spec.replicas > 1}' --set spec.replicas=3",
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.eval(args[0], args[1], sets)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Assign path=value before evaluating (repeatable)")
	return cmd
}

func (c *cli) eval(docPath, raw string, sets []string) error {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", docPath, err)
	}
	root := toObservable(doc)
	paths := property.NewCache(property.WithMetrics(c.metrics))

	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("--set %q: want path=value", s)
		}
		p, err := paths.Parse(name)
		if err != nil {
			return err
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			return fmt.Errorf("--set %q: %w", s, err)
		}
		if err := p.Set(root, toObservable(v)); err != nil {
			return err
		}
		c.log.V(1).Info("assigned", "path", name, "value", v)
	}

	p, err := paths.Parse(raw)
	if err != nil {
		return err
	}
	v, err := p.Get(root)
	if err != nil {
		return err
	}
	out, err := c.dumper.Dump(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, strings.TrimRight(string(out), "\n"))
	return nil
}

// toObservable converts decoded maps and sequences into observable
// containers, recursively.
func toObservable(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := observable.NewMap[string, any]()
		for k, e := range t {
			m.Put(k, toObservable(e))
		}
		return m
	case []any:
		items := make([]any, len(t))
		for i, e := range t {
			items[i] = toObservable(e)
		}
		return observable.NewList(items...)
	default:
		return v
	}
}

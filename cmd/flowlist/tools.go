package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harunnryd/flowlist/pkg/tools"
	"gopkg.in/yaml.v3"
)

// ToolsCmd prints the tool declarations selected by assistant.tools.
type ToolsCmd struct {
	Format string `short:"o" long:"format" description:"output format" choice:"yaml" choice:"json" default:"yaml"`

	root *Options
}

type toolView struct {
	Name        string         `json:"name" yaml:"name"`
	Group       string         `json:"group" yaml:"group"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`
}

func (t *ToolsCmd) Execute(_ []string) error {
	cfg, err := t.root.loadConfig()
	if err != nil {
		return err
	}
	registry, err := tools.FromSelection(cfg.Assistant.Tools)
	if err != nil {
		return err
	}
	return writeTools(os.Stdout, registry, t.Format)
}

func toolViews(registry *tools.Registry) []toolView {
	params := make(map[string]map[string]any)
	for _, lt := range registry.LLMTools() {
		params[lt.Name] = lt.Schema
	}
	defs := registry.Definitions()
	out := make([]toolView, 0, len(defs))
	for _, d := range defs {
		out = append(out, toolView{
			Name:        d.Name.String(),
			Group:       string(d.Group),
			Description: d.Description,
			Parameters:  params[d.Name.String()],
		})
	}
	return out
}

func writeTools(w io.Writer, registry *tools.Registry, format string) error {
	views := toolViews(registry)
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

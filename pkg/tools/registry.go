package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harunnryd/flowlist/pkg/llm"
)

var ErrUnknownPreset = errors.New("unknown tool preset")

// Registry is the immutable set of tools offered to the model in one deployment.
type Registry struct {
	defs     []Definition
	index    map[Name]int
	rendered []llm.Tool
}

// NewRegistry keeps defs in the given order and rejects duplicates.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{index: make(map[Name]int, len(defs))}
	for _, d := range defs {
		if _, ok := ParseName(string(d.Name)); !ok {
			return nil, fmt.Errorf("tool %q is not a known tool", d.Name)
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("tool %q registered twice", d.Name)
		}
		if d.Schema == nil {
			return nil, fmt.Errorf("tool %q has no schema", d.Name)
		}
		params, err := render(d.Schema)
		if err != nil {
			return nil, fmt.Errorf("render %s schema: %w", d.Name, err)
		}
		r.index[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
		r.rendered = append(r.rendered, llm.Tool{Name: string(d.Name), Description: d.Description, Schema: params})
	}
	return r, nil
}

// FromGroups registers every tool of the given groups, in catalog order.
func FromGroups(groups ...Group) (*Registry, error) {
	want := make(map[Group]bool, len(groups))
	for _, g := range groups {
		if !validGroup(g) {
			return nil, fmt.Errorf("unknown tool group %q", g)
		}
		want[g] = true
	}
	var defs []Definition
	for _, d := range catalog() {
		if want[d.Group] {
			defs = append(defs, d)
		}
	}
	return NewRegistry(defs...)
}

func FromPreset(p Preset) (*Registry, error) {
	switch p {
	case PresetMinimal:
		return fromNames(minimalSet...)
	case PresetExtended:
		names := append([]Name{}, minimalSet...)
		for _, d := range catalog() {
			if d.Group == GroupFinance {
				names = append(names, d.Name)
			}
		}
		return fromNames(names...)
	case PresetFull:
		return FromGroups(Groups...)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownPreset, p)
}

// FromSelection builds a registry from configuration: a single preset name,
// or a list of group names. Empty selects the minimal preset.
func FromSelection(items []string) (*Registry, error) {
	clean := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.ToLower(strings.TrimSpace(it)); it != "" {
			clean = append(clean, it)
		}
	}
	if len(clean) == 0 {
		return FromPreset(PresetMinimal)
	}
	if len(clean) == 1 {
		switch p := Preset(clean[0]); p {
		case PresetMinimal, PresetExtended, PresetFull:
			return FromPreset(p)
		}
	}
	groups := make([]Group, len(clean))
	for i, c := range clean {
		groups[i] = Group(c)
	}
	return FromGroups(groups...)
}

func fromNames(names ...Name) (*Registry, error) {
	all := catalog()
	byName := make(map[Name]Definition, len(all))
	for _, d := range all {
		byName[d.Name] = d
	}
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		d, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("tool %q has no definition", n)
		}
		defs = append(defs, d)
	}
	return NewRegistry(defs...)
}

func validGroup(g Group) bool {
	for _, known := range Groups {
		if g == known {
			return true
		}
	}
	return false
}

// Definitions returns the registered definitions in declaration order.
func (r *Registry) Definitions() []Definition {
	return append([]Definition(nil), r.defs...)
}

func (r *Registry) Lookup(name Name) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

func (r *Registry) Has(name Name) bool {
	_, ok := r.index[name]
	return ok
}

func (r *Registry) Names() []Name {
	out := make([]Name, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Name
	}
	return out
}

func (r *Registry) Len() int { return len(r.defs) }

// LLMTools returns the wire declarations. The slice is a copy; the schema maps are shared
// and must not be modified.
func (r *Registry) LLMTools() []llm.Tool {
	return append([]llm.Tool(nil), r.rendered...)
}

package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// BlueprintsDir is the directory holding blueprint definitions.
const BlueprintsDir = "blueprints"

var blueprintExtensions = []string{".yaml", ".yml"}

// BlueprintRepository reads blueprint definitions from a local checkout.
type BlueprintRepository interface {
	Names() []string
	Has(name string) bool
	Spec(name string) (*domain.BlueprintSpec, error)
}

type blueprintRepo struct {
	fs    afero.Fs
	files map[string]string
}

// OpenBlueprintRepository indexes root/blueprints.
func OpenBlueprintRepository(fs afero.Fs, root string) (BlueprintRepository, error) {
	dir := filepath.Join(root, BlueprintsDir)
	info, err := fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, domain.BadRepository("Repo doesn't have 'blueprints' dir", nil)
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, domain.BadRepository("failed to list blueprints", err)
	}
	files := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, allowed := range blueprintExtensions {
			if ext == allowed {
				files[strings.TrimSuffix(entry.Name(), ext)] = filepath.Join(dir, entry.Name())
			}
		}
	}
	return &blueprintRepo{fs: fs, files: files}, nil
}

func (r *blueprintRepo) Names() []string {
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *blueprintRepo) Has(name string) bool {
	_, ok := r.files[name]
	return ok
}

type rawBlueprint struct {
	Clouds    yaml.Node      `yaml:"clouds"`
	Services  map[string]any `yaml:"services"`
	Artifacts yaml.Node      `yaml:"artifacts"`
	Inputs    yaml.Node      `yaml:"inputs"`
}

// Spec parses the named blueprint.
func (r *blueprintRepo) Spec(name string) (*domain.BlueprintSpec, error) {
	path, ok := r.files[name]
	if !ok {
		return nil, domain.BadRepository(fmt.Sprintf("Blueprint Git repo does not contain blueprint %s", name), nil)
	}
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.BadRepository(fmt.Sprintf("blueprint file %s disappeared", path), err)
		}
		return nil, fmt.Errorf("failed to read blueprint %s: %w", name, err)
	}
	return ParseBlueprint(name, data)
}

// ParseBlueprint decodes a blueprint definition. Artifacts and inputs may be written either as a
// mapping or as a list of single-entry mappings; inputs may also be bare names.
func ParseBlueprint(name string, data []byte) (*domain.BlueprintSpec, error) {
	var raw rawBlueprint
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse blueprint %s: %w", name, err)
	}
	spec := &domain.BlueprintSpec{
		Name:      name,
		Services:  raw.Services,
		Artifacts: map[string]string{},
		Inputs:    map[string]string{},
	}
	spec.Clouds = cloudNames(&raw.Clouds)
	for _, entry := range namedEntries(&raw.Artifacts) {
		if path := scalarValue(entry.value); path != "" {
			spec.Artifacts[entry.name] = path
		}
	}
	for _, entry := range namedEntries(&raw.Inputs) {
		if value := inputDefault(entry.value); value != "" {
			spec.Inputs[entry.name] = value
		}
	}
	return spec, nil
}

type namedEntry struct {
	name  string
	value *yaml.Node
}

func namedEntries(node *yaml.Node) []namedEntry {
	var entries []namedEntry
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			entries = append(entries, namedEntry{name: node.Content[i].Value, value: node.Content[i+1]})
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.MappingNode:
				entries = append(entries, namedEntries(item)...)
			case yaml.ScalarNode:
				entries = append(entries, namedEntry{name: item.Value})
			}
		}
	}
	return entries
}

func cloudNames(node *yaml.Node) []string {
	var names []string
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value != "" {
			names = append(names, node.Value)
		}
	case yaml.MappingNode, yaml.SequenceNode:
		for _, entry := range namedEntries(node) {
			names = append(names, entry.name)
		}
	}
	return names
}

func scalarValue(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}
	return node.Value
}

func inputDefault(node *yaml.Node) string {
	if node == nil {
		return ""
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "default_value" {
				return scalarValue(node.Content[i+1])
			}
		}
		return ""
	}
	return scalarValue(node)
}

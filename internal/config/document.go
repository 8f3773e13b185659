package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vk/pubgrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// DocumentLoader reads covector-style JSON, YAML and TOML documents.
type DocumentLoader struct{}

// NewDocumentLoader creates a loader for JSON, YAML and TOML documents.
func NewDocumentLoader() *DocumentLoader {
	return &DocumentLoader{}
}

// rawDocument mirrors the on-disk layout shared by every document format.
type rawDocument struct {
	Workspace   rawWorkspace          `json:"workspace" yaml:"workspace" toml:"workspace"`
	PkgManagers map[string]rawManager `json:"pkgManagers" yaml:"pkgManagers" toml:"pkgManagers"`
	Packages    map[string]rawPackage `json:"packages" yaml:"packages" toml:"packages"`
}

type rawWorkspace struct {
	Root               string `json:"root" yaml:"root" toml:"root"`
	DefaultStepTimeout any    `json:"defaultStepTimeout" yaml:"defaultStepTimeout" toml:"defaultStepTimeout"`
}

type rawManager struct {
	SupportsVersionCheck bool       `json:"supportsVersionCheck" yaml:"supportsVersionCheck" toml:"supportsVersionCheck"`
	GetPublishedVersion  string     `json:"getPublishedVersion" yaml:"getPublishedVersion" toml:"getPublishedVersion"`
	Prepublish           any        `json:"prepublish" yaml:"prepublish" toml:"prepublish"`
	Publish              any        `json:"publish" yaml:"publish" toml:"publish"`
	Postpublish          any        `json:"postpublish" yaml:"postpublish" toml:"postpublish"`
	Assets               []rawAsset `json:"assets" yaml:"assets" toml:"assets"`
}

type rawAsset struct {
	Path string `json:"path" yaml:"path" toml:"path"`
	Name string `json:"name" yaml:"name" toml:"name"`
}

type rawPackage struct {
	Path         string   `json:"path" yaml:"path" toml:"path"`
	Manager      string   `json:"manager" yaml:"manager" toml:"manager"`
	Version      string   `json:"version" yaml:"version" toml:"version"`
	PackageName  string   `json:"packageName" yaml:"packageName" toml:"packageName"`
	Dependencies []string `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	Prepublish   any      `json:"prepublish" yaml:"prepublish" toml:"prepublish"`
	Publish      any      `json:"publish" yaml:"publish" toml:"publish"`
	Postpublish  any      `json:"postpublish" yaml:"postpublish" toml:"postpublish"`
}

func (m rawManager) stages() map[Stage]any {
	return map[Stage]any{StagePrepublish: m.Prepublish, StagePublish: m.Publish, StagePostpublish: m.Postpublish}
}

func (p rawPackage) stages() map[Stage]any {
	return map[Stage]any{StagePrepublish: p.Prepublish, StagePublish: p.Publish, StagePostpublish: p.Postpublish}
}

// Load decodes the document at path, choosing the format by extension.
func (l *DocumentLoader) Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	logger.Debug("Document loader started.")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	var (
		doc   rawDocument
		order []string
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		doc, order, err = decodeJSON(data)
	case ".yaml", ".yml":
		doc, order, err = decodeYAML(data)
	case ".toml":
		doc, order, err = decodeTOML(data)
	default:
		err = fmt.Errorf("unsupported configuration format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration %s: %w", path, err)
	}

	model, err := doc.translate(order, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("in configuration %s: %w", path, err)
	}
	logger.Debug("Document loading complete.", "managers", len(model.Managers), "packages", len(model.Packages))
	return model, nil
}

func decodeJSON(data []byte) (rawDocument, []string, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, nil, err
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return doc, nil, err
	}
	raw, ok := top["packages"]
	if !ok {
		return doc, nil, nil
	}
	order, err := jsonKeyOrder(raw)
	return doc, order, err
}

// jsonKeyOrder lists the keys of a JSON object in document order.
func jsonKeyOrder(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}
	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in packages", tok)
		}
		if seen[key] {
			return nil, fmt.Errorf("package %q is declared more than once", key)
		}
		seen[key] = true
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func decodeYAML(data []byte) (rawDocument, []string, error) {
	var doc rawDocument
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return doc, nil, err
	}
	if len(root.Content) == 0 {
		return doc, nil, nil
	}
	if err := root.Decode(&doc); err != nil {
		return doc, nil, err
	}

	var order []string
	top := root.Content[0]
	if top.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(top.Content); i += 2 {
			if top.Content[i].Value != "packages" || top.Content[i+1].Kind != yaml.MappingNode {
				continue
			}
			pkgs := top.Content[i+1]
			for j := 0; j+1 < len(pkgs.Content); j += 2 {
				order = append(order, pkgs.Content[j].Value)
			}
		}
	}
	return doc, order, nil
}

func decodeTOML(data []byte) (rawDocument, []string, error) {
	var doc rawDocument
	meta, err := toml.Decode(string(data), &doc)
	if err != nil {
		return doc, nil, err
	}
	var order []string
	seen := make(map[string]struct{})
	for _, key := range meta.Keys() {
		if len(key) != 2 || key[0] != "packages" {
			continue
		}
		if _, ok := seen[key[1]]; ok {
			continue
		}
		seen[key[1]] = struct{}{}
		order = append(order, key[1])
	}
	return doc, order, nil
}

// translate converts the raw document into the model. order lists package
// names in declaration order.
func (d rawDocument) translate(order []string, configDir string) (*Model, error) {
	model := NewModel()

	root := d.Workspace.Root
	switch {
	case root == "":
		root = configDir
	case !filepath.IsAbs(root):
		root = filepath.Join(configDir, root)
	}
	model.Workspace.Root = root

	timeout, err := DurationFromValue(d.Workspace.DefaultStepTimeout)
	if err != nil {
		return nil, fmt.Errorf("workspace defaultStepTimeout: %w", err)
	}
	model.Workspace.DefaultStepTimeout = timeout

	for name, raw := range d.PkgManagers {
		mgr := &PackageManager{
			Name:                    name,
			SupportsVersionCheck:    raw.SupportsVersionCheck,
			PublishedVersionCommand: raw.GetPublishedVersion,
			Stages:                  make(map[Stage][]Step),
		}
		for stage, value := range raw.stages() {
			steps, err := StepsFromValue(value)
			if err != nil {
				return nil, fmt.Errorf("package manager %q %s: %w", name, stage, err)
			}
			mgr.Stages[stage] = steps
		}
		for _, a := range raw.Assets {
			mgr.Assets = append(mgr.Assets, AssetTemplate{Path: a.Path, Name: a.Name})
		}
		model.Managers[name] = mgr
	}

	if len(order) != len(d.Packages) {
		return nil, fmt.Errorf("could not determine declaration order of packages")
	}
	for _, name := range order {
		raw, ok := d.Packages[name]
		if !ok {
			return nil, fmt.Errorf("package %q missing after decode", name)
		}
		pkg := &Package{
			Name:         name,
			Path:         raw.Path,
			Manager:      raw.Manager,
			Version:      raw.Version,
			PackageName:  raw.PackageName,
			Dependencies: raw.Dependencies,
		}
		if pkg.Path == "" {
			pkg.Path = "."
		}
		for stage, value := range raw.stages() {
			if value == nil {
				continue
			}
			steps, err := StepsFromValue(value)
			if err != nil {
				return nil, fmt.Errorf("package %q %s: %w", name, stage, err)
			}
			if pkg.Overrides == nil {
				pkg.Overrides = make(map[Stage][]Step)
			}
			pkg.Overrides[stage] = steps
		}
		model.Packages = append(model.Packages, pkg)
	}
	return model, nil
}

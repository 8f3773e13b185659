package config

import "time"

// Stage names a phase of the publish pipeline.
type Stage string

const (
	StagePrepublish  Stage = "prepublish"
	StagePublish     Stage = "publish"
	StagePostpublish Stage = "postpublish"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StagePrepublish, StagePublish, StagePostpublish}

// Model is the unified, format-agnostic representation of a release
// configuration.
type Model struct {
	Workspace Workspace
	Managers  map[string]*PackageManager
	// Packages keeps declaration order; ties in the schedule are broken by it.
	Packages []*Package
}

// NewModel returns an empty model ready to be populated by a loader.
func NewModel() *Model {
	return &Model{Managers: make(map[string]*PackageManager)}
}

// Package looks a package up by name.
func (m *Model) Package(name string) (*Package, bool) {
	for _, p := range m.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Workspace holds settings that apply to every package.
type Workspace struct {
	// Root is the directory that runFromRoot steps and relative package paths
	// resolve against.
	Root               string
	DefaultStepTimeout time.Duration
}

// PackageManager is a named, reusable pipeline definition.
type PackageManager struct {
	Name                    string
	SupportsVersionCheck    bool
	PublishedVersionCommand string
	Stages                  map[Stage][]Step
	Assets                  []AssetTemplate
}

// Package is a single publishable unit.
type Package struct {
	Name         string
	Path         string
	Manager      string
	Version      string
	PackageName  string
	Dependencies []string
	// Overrides replaces the manager's step list for the stages it names.
	Overrides map[Stage][]Step
}

// PublishedName returns the name the package is published under.
func (p *Package) PublishedName() string {
	if p.PackageName != "" {
		return p.PackageName
	}
	return p.Name
}

// StepsFor returns the steps the package runs for a stage: its own override
// when present, otherwise the manager's list.
func (p *Package) StepsFor(stage Stage, mgr *PackageManager) []Step {
	if steps, ok := p.Overrides[stage]; ok {
		return steps
	}
	if mgr == nil {
		return nil
	}
	return mgr.Stages[stage]
}

// DryRunMode is the tagged variant behind a step's dryRunCommand field.
type DryRunMode int

const (
	// DryRunReal executes the real command even in dry-run mode.
	DryRunReal DryRunMode = iota
	// DryRunSkip prints the would-be command without running anything.
	DryRunSkip
	// DryRunOverride runs DryRunCommand instead of Command.
	DryRunOverride
)

func (m DryRunMode) String() string {
	switch m {
	case DryRunSkip:
		return "skip"
	case DryRunOverride:
		return "override"
	default:
		return "real"
	}
}

// Step is a single executable unit within a stage.
type Step struct {
	Command       string
	DryRun        DryRunMode
	DryRunCommand string
	RunFromRoot   bool
	Pipe          bool
	Timeout       time.Duration
}

// AssetTemplate is a path/name template pair expanded after publish.
type AssetTemplate struct {
	Path string
	Name string
}

// Asset is an expanded AssetTemplate.
type Asset struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

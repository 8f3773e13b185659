package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all top-level blocks of a file.
type fileRoot struct {
	Workspace *hclWorkspace `hcl:"workspace,block"`
	Managers  []*hclManager `hcl:"package_manager,block"`
	Packages  []*hclPackage `hcl:"package,block"`
}

type hclWorkspace struct {
	Root               string `hcl:"root,optional"`
	DefaultStepTimeout string `hcl:"default_step_timeout,optional"`
}

// hclManager is decoded in two passes: the label first, then the body
// against managerBodySchema.
type hclManager struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclPackage struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// hclStage is the body of a prepublish, publish or postpublish block.
type hclStage struct {
	Steps []*hclStep `hcl:"step,block"`
}

type hclStep struct {
	Command       hcl.Expression `hcl:"command"`
	DryRunCommand hcl.Expression `hcl:"dry_run_command,optional"`
	RunFromRoot   bool           `hcl:"run_from_root,optional"`
	Pipe          bool           `hcl:"pipe,optional"`
	Timeout       string         `hcl:"timeout,optional"`
}

type hclAsset struct {
	Path hcl.Expression `hcl:"path"`
	Name hcl.Expression `hcl:"name,optional"`
}

var stageBlocks = []hcl.BlockHeaderSchema{
	{Type: "prepublish"},
	{Type: "publish"},
	{Type: "postpublish"},
}

var managerBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "supports_version_check"},
		{Name: "published_version_command"},
	},
	Blocks: append([]hcl.BlockHeaderSchema{{Type: "asset"}}, stageBlocks...),
}

var packageBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "path"},
		{Name: "manager", Required: true},
		{Name: "version"},
		{Name: "package_name"},
		{Name: "dependencies"},
	},
	Blocks: stageBlocks,
}

// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/hclx"
	"github.com/zclconf/go-cty/cty"
)

func (l *Loader) translateWorkspace(w *hclWorkspace, fileDir string, out *config.Workspace) error {
	if w.Root != "" {
		if filepath.IsAbs(w.Root) {
			out.Root = w.Root
		} else {
			out.Root = filepath.Join(fileDir, w.Root)
		}
	}
	if w.DefaultStepTimeout != "" {
		d, err := time.ParseDuration(w.DefaultStepTimeout)
		if err != nil {
			return fmt.Errorf("workspace default_step_timeout: %w", err)
		}
		out.DefaultStepTimeout = d
	}
	return nil
}

// translateManager converts a package_manager block into the agnostic model.
func (l *Loader) translateManager(ctx context.Context, m *hclManager) (*config.PackageManager, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx).With("package_manager", m.Name)
	logger.Debug("Translating HCL package manager to internal config model.")

	content, diags := m.Body.Content(managerBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	mgr := &config.PackageManager{
		Name:   m.Name,
		Stages: make(map[config.Stage][]config.Step),
	}

	if attr, ok := content.Attributes["supports_version_check"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &mgr.SupportsVersionCheck)...)
	}
	if attr, ok := content.Attributes["published_version_command"]; ok {
		src, srcDiags := templateSource(attr.Expr)
		diags = append(diags, srcDiags...)
		mgr.PublishedVersionCommand = src
	}

	var stageDiags hcl.Diagnostics
	mgr.Stages, stageDiags = l.translateStages(ctx, content.Blocks)
	diags = append(diags, stageDiags...)

	for _, block := range content.Blocks.OfType("asset") {
		var a hclAsset
		assetDiags := gohcl.DecodeBody(block.Body, nil, &a)
		diags = append(diags, assetDiags...)
		if assetDiags.HasErrors() {
			continue
		}
		path, pathDiags := templateSource(a.Path)
		name, nameDiags := templateSource(a.Name)
		diags = append(diags, pathDiags...)
		diags = append(diags, nameDiags...)
		mgr.Assets = append(mgr.Assets, config.AssetTemplate{Path: path, Name: name})
	}

	return mgr, diags
}

// translatePackage converts a package block into the agnostic model.
func (l *Loader) translatePackage(ctx context.Context, p *hclPackage) (*config.Package, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx).With("package", p.Name)
	logger.Debug("Translating HCL package to internal config model.")

	content, diags := p.Body.Content(packageBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	pkg := &config.Package{Name: p.Name, Path: "."}
	decode := func(name string, target any) {
		if attr, ok := content.Attributes[name]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, target)...)
		}
	}
	decode("path", &pkg.Path)
	decode("manager", &pkg.Manager)
	decode("version", &pkg.Version)
	decode("package_name", &pkg.PackageName)
	decode("dependencies", &pkg.Dependencies)

	overrides, stageDiags := l.translateStages(ctx, content.Blocks)
	diags = append(diags, stageDiags...)
	if len(overrides) > 0 {
		pkg.Overrides = overrides
	}
	return pkg, diags
}

// translateStages decodes the stage blocks present in blocks. Stages whose
// block is absent are left out of the returned map.
func (l *Loader) translateStages(ctx context.Context, blocks hcl.Blocks) (map[config.Stage][]config.Step, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	stages := make(map[config.Stage][]config.Step)

	for _, stage := range config.Stages {
		block, blockDiags := hclx.FindUniqueBlock(blocks, string(stage))
		diags = append(diags, blockDiags...)
		if block == nil {
			continue
		}

		var body hclStage
		bodyDiags := gohcl.DecodeBody(block.Body, nil, &body)
		diags = append(diags, bodyDiags...)
		if bodyDiags.HasErrors() {
			continue
		}

		steps := make([]config.Step, 0, len(body.Steps))
		for _, s := range body.Steps {
			step, stepDiags := translateStep(ctx, s)
			diags = append(diags, stepDiags...)
			steps = append(steps, step)
		}
		stages[stage] = steps
	}
	return stages, diags
}

func translateStep(ctx context.Context, s *hclStep) (config.Step, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	step := config.Step{RunFromRoot: s.RunFromRoot, Pipe: s.Pipe}

	cmd, cmdDiags := templateSource(s.Command)
	diags = append(diags, cmdDiags...)
	step.Command = cmd

	if isExprDefined(ctx, s.DryRunCommand, "dry_run_command") {
		if lit, ok := s.DryRunCommand.(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type() == cty.Bool {
			if lit.Val.True() {
				step.DryRun = config.DryRunSkip
			}
		} else {
			src, srcDiags := templateSource(s.DryRunCommand)
			diags = append(diags, srcDiags...)
			step.DryRun = config.DryRunOverride
			step.DryRunCommand = src
		}
	}

	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid step timeout",
				Detail:   err.Error(),
				Subject:  s.Command.Range().Ptr(),
			})
		}
		step.Timeout = d
	}
	return step, diags
}

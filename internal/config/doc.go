// Package config defines the format-agnostic configuration model for the
// release orchestrator: package managers with their staged command pipelines,
// the packages that reference them and the workspace they live in.
//
// The `config.Model` is the single source of truth for the `graph`,
// `pipeline` and `orchestrator` packages. The JSON, YAML and TOML document
// loaders live here; the HCL loader lives in the `hcl_adapter` package.
package config

// Package hcl_adapter loads release configuration written in HCL and
// translates it into the format-agnostic config.Model.
//
// String attributes that hold commands or asset paths are not evaluated at
// load time. Their `${ ... }` interpolations are captured as template source
// and handed to the template package, which resolves them per package run.
package hcl_adapter

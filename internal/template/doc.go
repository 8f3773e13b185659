// Package template expands `${ expression }` placeholders in command and asset
// strings.
//
// The language is deliberately tiny: an expression is a property path rooted
// at one of the namespaces `pkg`, `pkgFile` or `process` (for `process.env`).
// Paths are parsed with the HCL expression parser and kept only when they are
// plain attribute traversals, so a template can never call functions, branch
// or index into collections. `$${` writes a literal `${`.
package template

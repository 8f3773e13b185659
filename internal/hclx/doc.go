// Package hclx holds small helpers shared by code that walks HCL bodies and
// expressions.
package hclx

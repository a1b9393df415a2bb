// Package tools provides reusable runtime helpers shared by applyctl modules.
//
// Ownership boundary:
// - command execution helpers
package tools

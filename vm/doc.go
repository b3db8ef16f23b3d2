// Package vm implements the CSE machine that evaluates RPAL programs.
//
// This package contains:
//   - The runtime value representation (a closed sum type)
//   - Deep copy of values for environment bindings
//   - Parent-linked environments
//   - The control/stack/environment interpreter loop
//   - Built-in functions
package vm

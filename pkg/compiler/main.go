// Package compiler implements the Neksis front end and bytecode
// compiler: lexer, recursive-descent parser, two-pass semantic analyzer,
// optional optimizer, and the bytecode generator that lowers a
// type-checked program to a bytecode.Module for pkg/vm to execute.
package compiler

// Package enginecontract holds the behavior every lending.Engine must show, written once and run
// against each engine implementation from its own test package.
package enginecontract

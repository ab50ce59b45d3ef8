// Package engine defines the contract a Session uses to drive an upstream
// agent engine: an opaque async message source paired with an interrupt/abort
// handle and a permission-request callback. The engine itself is out of
// scope (spec.md §1 treats it as an external collaborator); this package
// only describes the shape a Session depends on, plus two concrete
// realizations under engine/scripted and engine/subprocess.
package engine

package neighgo

import (
	"errors"
	"fmt"
)

var (
	// ErrNeighborCountUnset is returned when neither a neighbor count nor a
	// finite cutoff radius bounds a search.
	ErrNeighborCountUnset = errors.New("specify either num neighbors or a finite cutoff radius")

	// ErrInvalidNumNeighbors is returned for a negative neighbor count.
	ErrInvalidNumNeighbors = errors.New("num neighbors must not be negative")

	// ErrInvalidWidthBuffer is returned for a negative width buffer.
	ErrInvalidWidthBuffer = errors.New("width buffer must not be negative")

	// ErrInvalidTolerance is returned for a negative shell tolerance.
	ErrInvalidTolerance = errors.New("tolerance must not be negative")

	// ErrNotComputed is returned when derived quantities are requested
	// before any neighbor query has populated the table.
	ErrNotComputed = errors.New("neighbors not computed yet")

	// ErrNotAtomTable is returned when an operation that walks atom-to-atom
	// bonds runs on a table whose rows are not the structure's atoms.
	ErrNotAtomTable = errors.New("operation requires one table row per atom")

	// ErrDegenerateCell is returned when a neighbor count must be estimated
	// from the atom density but the cell volume is zero.
	ErrDegenerateCell = errors.New("cell volume is zero: cannot estimate num neighbors from cutoff radius")

	// ErrInvalidChemicalPair is returned when a shell matrix filter does not
	// name exactly two chemical symbols.
	ErrInvalidChemicalPair = errors.New("chemical pair must name exactly two symbols")

	// ErrInvalidDegree is returned for spherical harmonic parameters outside
	// l >= 0 and |m| <= l.
	ErrInvalidDegree = errors.New("spherical harmonic degree and order must satisfy l >= 0 and |m| <= l")
)

// ErrSearchInfeasible indicates that more neighbors were requested than the
// extended search space holds while no finite cutoff bounds the search.
//
// Increase the width buffer or reduce the neighbor count to resolve it.
type ErrSearchInfeasible struct {
	Requested int
	Available int
}

func (e *ErrSearchInfeasible) Error() string {
	return fmt.Sprintf("num neighbors too large: %d requested but only %d extended positions available", e.Requested, e.Available)
}

// ErrNoNeighbors indicates an atom without a single neighbor inside the
// cutoff radius.
type ErrNoNeighbors struct {
	Atom int
}

func (e *ErrNoNeighbors) Error() string {
	return fmt.Sprintf("cutoff radius too small: atom %d has no neighbors", e.Atom)
}

// ErrUnknownMode indicates an unrecognized mode name.
type ErrUnknownMode struct {
	Mode string
}

func (e *ErrUnknownMode) Error() string {
	return fmt.Sprintf("unknown mode: %q", e.Mode)
}

// ErrAtomOutOfRange indicates an atom id outside the reference structure.
type ErrAtomOutOfRange struct {
	Atom int
	Len  int
}

func (e *ErrAtomOutOfRange) Error() string {
	return fmt.Sprintf("atom id %d out of range for structure of %d atoms", e.Atom, e.Len)
}

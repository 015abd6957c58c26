// Package neighgo provides periodic-boundary-aware neighbor analysis for
// atomic structures.
//
// Neighgo answers "who is near whom" for snapshots of atomistic simulations.
// It extends a structure by the periodic images needed to cover a search,
// builds a k-d tree over the result once, and derives neighbor distances,
// displacement vectors, coordination shells, bond order parameters and
// connectivity from that single index.
//
// # Quick Start
//
// Compute the neighbors of every atom in a bcc iron cell:
//
//	st, _ := structure.New(positions, cell, [3]bool{true, true, true}, symbols)
//	n, err := neighgo.FindNeighbors(st, neighgo.WithNumNeighbors(8))
//	if err != nil {
//	    panic(err)
//	}
//
//	distances := n.Distances() // one row per atom, sorted ascending
//	indices := n.Indices()     // neighbor ids aligned with distances
//	shells, _ := n.Shells()    // coordination shells counted from 1
//
// Search around arbitrary points instead of atoms:
//
//	probe, _ := n.Neighborhood([][3]float64{{0.1, 0.2, 0.3}})
//
// With a finite cutoff radius, rows hold different neighbor counts. Slots
// beyond the cutoff carry +Inf distances and SentinelIndex; the Ragged and
// Flattened views strip them:
//
//	n, _ := neighgo.FindNeighbors(st, neighgo.WithCutoffRadius(3.5))
//	for i, row := range n.Ragged().Distances() {
//	    fmt.Println(i, row)
//	}
//
// # Key Features
//
//   - Periodic halo construction with automatic thickness estimation
//   - Exact k-nearest and cutoff-bounded searches in any Minkowski norm
//   - Filled, ragged and flattened table views with strict sentinel rules
//   - Local and global coordination shells with agglomerative refinement
//   - Sparse per-shell adjacency matrices
//   - Steinhardt bond order parameters from spherical harmonics
//   - Connected-component and bond analysis on the neighbor graph
package neighgo

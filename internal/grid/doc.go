// Package grid defines the metadata model and mutation protocol of a
// block-partitioned grid.
//
// # Overview
//
// A [Grid] owns an ordered list of [Field] (columns, in display order) and an
// ordered list of [Block] partitions (in row order). Rows do not live in the
// Grid: each block's rows are kept in a separate [BlockRows] collection, and
// the Grid only records each block's starting offset and row count.
//
// # Mutation
//
// Entities are never patched directly. Every change enters as a changeset
// whose attributes are independently optional; applying one copies only the
// attributes that are set. A [CellChangeset] is lifted into a [RowChangeset]
// by [CellChangeset.RowChangeset] so single-cell edits take the same path as
// row edits.
//
// # Concurrency
//
// Nothing in this package locks. Each exported mutation is a multi-step
// read-modify-write and must run under an exclusive lock held by the caller
// on the owning Grid.
//
// # Offsets
//
// Block offsets are not maintained automatically. After changing any block's
// row count, call [Grid.RecomputeOffsets] to restore contiguous global row
// numbering.
package grid

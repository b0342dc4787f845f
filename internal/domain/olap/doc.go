// Package olap describes the query contract of the upstream sales-analytics cube.
//
// The cube never returns whole orders. It returns flat aggregate rows sliced along
// caller-chosen grouping columns, so every consumer works with Row values keyed by
// upstream column names. Row exposes typed accessors for the columns the receipt
// engine depends on and falls back to generic lookups for everything else.
package olap

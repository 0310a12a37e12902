// Package graph provides serialization types for rewrite trees and layouts.
//
// This package defines the canonical wire format for saved trees, used for
// JSON files, API responses and archive entries.
//
// # Core Types
//
//   - [Graph]: node-link format for whole trees
//   - [Layout]: positioned snapshot of the visible part of a tree
//   - [Node], [Edge]: shared structural types
//
// # Graph Serialization
//
// Trees use a flat node list plus an edge list. IDs are preorder indices,
// and edges appear in child order:
//
//	{
//	  "nodes": [
//	    {"id": "n0", "label": "reduce", "comment": true},
//	    {"id": "n1", "label": "s(0)", "properties": "sort=Nat"}
//	  ],
//	  "edges": [{"from": "n0", "to": "n1"}]
//	}
//
// Common operations:
//
//	t, _ := graph.ReadGraphFile("trace.json")   // File → Tree
//	graph.WriteGraphFile(t, "output.json")      // Tree → File
//	data, _ := graph.MarshalGraph(t)            // Tree → []byte
//	parsed, _ := graph.UnmarshalGraph(data)     // []byte → Graph
//
// [ToTree] validates that a graph forms a single tree and reports problems
// as INVALID_GRAPH errors.
package graph

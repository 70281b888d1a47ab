// Package graph holds the dependency graph model and the algorithms that
// turn a set of seed paths into a closed, de-duplicated, optionally
// circularity-annotated module list.
//
// # Pipeline
//
// The stages are pure functions over []Node and run in this order:
//
//  1. Build / BuildConcurrent: pre-order traversal from the seeds
//  2. Complete: materialize a terminal node for every non-followable target
//  3. Dedupe: keep the first node per source
//  4. AnnotateCircular: mark each edge whose target reaches back to its owner
//
// No stage mutates records produced by an earlier one; annotation returns
// copies.
package graph

import "errors"

// ErrExtract is returned (wrapped) when the edge extractor fails for a path.
var ErrExtract = errors.New("extract dependencies")

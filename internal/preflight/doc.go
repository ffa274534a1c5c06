// Package preflight checks that the environment can serve answers before
// saesagent starts: the regulation corpus and vector index on disk, the
// embedding backend, the generation API key, the records backend, and the
// local system limits.
//
// Checks marked Required fail the run; the rest only degrade answers and
// are reported as warnings.
package preflight

package platform

// Package platform contains OS and filesystem glue for the pipeline: work
// directory setup, per-item artifact naming, artifact lookup after an
// extractor run, quiet removal, free-space checks, and human-readable sizes.

package model

// Package model defines domain data structures shared by the pipeline: media
// requests and quality tiers, probe metadata, local artifacts, item states and
// outcomes, and collection summaries. Values are built once and not mutated
// after hand-off, except CollectionSummary which is accumulated by its owner.

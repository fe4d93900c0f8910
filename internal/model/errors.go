package model

import "errors"

// ErrMissingArtifact is returned when an external tool reported success but
// the expected output file is absent. It is fatal for the item.
var ErrMissingArtifact = errors.New("expected output file is missing")

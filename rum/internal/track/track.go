// Package track implements the checkpoint trackers: visibility, content
// mutation re-arming, lifecycle, resources, web vitals and interactions.
//
// Every tracker consumes typed entry batches from the instrument package and
// emits checkpoints through a single injected Emit capability. Nothing here
// touches the browser — trackers are driven by synthetic batches in tests and
// by the relay in production. Detection failures are logged and swallowed;
// a tracker never propagates an error past its batch.
package track

import "github.com/hazyhaar/rumwatch/checkpoint"

// Emit delivers one checkpoint into the dispatch path.
type Emit func(cp checkpoint.Checkpoint)

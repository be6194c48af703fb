// Package pipeline orchestrates the multi-rate agent simulation.
//
// Five passes run on their own scheduler lanes: planning, control,
// dynamics, sensors and estimation. Each pass is a run-to-completion batch
// over the agent registry; per-agent numeric work fans out over a bounded
// worker pool. Passes never return errors. Invalid steps, planner failures
// and misbehaving plugins are recorded as per-agent diagnostics and logged
// on the ops stream, and the affected agent keeps its previous value.
//
// The pipeline does not own any numeric algorithm. Dynamics, sensors,
// estimators, planners and controllers are supplied per agent through the
// capability interfaces in package sim.
package pipeline

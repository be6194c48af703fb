// Package agent owns the registry of simulated agents and the components
// attached to them: true and estimated state, control input, goal, path,
// sensor suite and the pluggable dynamics, estimator, planner and
// controller behaviours.
//
// The registry replaces a host engine's entity storage. Agents are created
// and destroyed only through Spawn and Despawn; the orchestrators in
// internal/pipeline mutate attached components inside Registry.Mutate.
//
// Two kinds of change tracking live here because the pipeline depends on
// them: the planning rising edge (goal set, path container created) and the
// estimator dirty flag that gates publication of EstimatedState.
package agent

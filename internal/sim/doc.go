// Package sim defines the data model shared by every part of the agent
// simulation: state and control vectors, poses, obstacles, measurements,
// paths and goals, plus the capability interfaces implemented by pluggable
// dynamics, sensor, estimator, planner and controller behaviours.
//
// Capability implementations live outside this package (see
// internal/models). The orchestration layer in internal/pipeline depends
// only on the interfaces declared here.
//
// Dependency rule: sim imports no other internal package.
package sim

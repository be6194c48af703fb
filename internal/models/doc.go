// Package models groups the reference implementations of the simulation
// capabilities: integrators, dynamics, sensors, estimators, planners and
// controllers. The pipeline depends only on the interfaces in package sim;
// these implementations let scenarios run end to end.
package models

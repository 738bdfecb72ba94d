// Package herd runs parameter sweeps over a chain of external programs.
//
// A sweep is a list of simulations; each simulation is a list of variable
// sets, one per stage of the chain. For every simulation the herd picks a
// working directory from the worker executing it, writes each stage's
// modified input into it, runs the stage and records the output artifact.
// Once all simulations finish, the output paths and variables are persisted
// as the sweep's manifest.
package herd

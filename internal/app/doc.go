// Package app contains the core application logic. It turns a loaded
// configuration into a herd of simulation stages, runs sweeps and reads
// their outputs back, decoupled from any specific entrypoint like a CLI.
package app

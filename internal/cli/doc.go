// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates subcommands and flags into the application's configuration and
// picks the configuration loader.
package cli

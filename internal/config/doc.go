// Package config defines the format-agnostic configuration model for a herd:
// the solver and mesher installations, the worker directory layout, the
// ordered chain of simulation stages and the variable sweep to push through
// it. Concrete loaders (HCL, YAML) live in separate packages and translate
// their files into a config.Model.
package config

// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, block decoding and
// translation of HCL values into the format-agnostic config.Model.
package hcl

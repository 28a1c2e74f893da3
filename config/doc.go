// Package config loads draftops configuration.
//
// Values are layered, later sources winning:
//
//  1. Defaults (see Default)
//  2. A YAML file, with ${VAR} references expanded from the environment
//  3. A .env file, loaded into the process environment
//  4. DRAFTOPS_* environment variables
//
// The resulting Config builds the runtime pieces it describes: the draft
// persister, the resilience settings of the entity stores, and the
// observer configuration.
package config

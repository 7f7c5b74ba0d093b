// Package config loads sassdata configuration.
//
// # Overview
//
// Settings are layered with viper. In order of precedence:
//
//   - command line flags bound through LoadOptions.Flags
//   - environment variables prefixed with SASSDATA_ (nested keys use "_",
//     so sass.output_style is SASSDATA_SASS_OUTPUT_STYLE)
//   - a config file in YAML, TOML, JSON or CUE
//   - built-in defaults
//
// The merged result is decoded into Config and checked with validator
// struct tags.
//
// # CUE Configuration Files
//
// CUE config files are unified with a closed schema before they are merged,
// so unknown keys and out-of-range values are reported with their position:
//
//	include_paths: ["styles/data", "vendor/tokens"]
//	theme_names: ["theme", "tokens"]
//	sass: {
//	    output_style: "compressed"
//	    timeout:      "45s"
//	}
//
// Schema failures are returned as a *ValidationErrors listing each problem:
//
//	ValidationError{
//	    File: "sassdata.cue",
//	    Line: 4,
//	    Column: 19,
//	    Path: "sass.output_style",
//	    Message: `sass.output_style: 2 errors in empty disjunction`,
//	}
//
// # Include Paths
//
// Include paths may be given one per flag or entry, or as a single string
// joined with the platform's list separator (":" on Unix, ";" on Windows).
// Both forms are flattened by SplitIncludePaths.
package config

// Package tasks parses, validates, and orders task specifications.
//
// A task file is a JSON or YAML array of records, or an object holding the
// array under "tasks":
//
//	[
//	  {"task": "Design API", "duration": 2, "depends_on": []},
//	  {"task": "Implement API", "duration": 5, "depends_on": ["Design API"]}
//	]
//
// # Record Decoding
//
// Records written by people and language models vary in shape, so decoding
// accepts a few spellings of each field:
//
//   - Name: "task", "name", "title" or "description", first non-empty wins
//   - Duration in hours: "duration_hours" or "hours"
//   - Duration in minutes: "duration_minutes" or "minutes"
//   - Duration in the configured unit: "duration" or "estimate"
//   - Dependencies: "depends_on", "depends", "dependencies" or "dependency"
//
// Durations may be numbers, numeric strings, or Go duration strings such as
// "90m". Dependencies may be null, a single name, a list of names, or
// zero-based indexes into the same batch.
//
// # Validation
//
// Validate rejects empty names and negative or non-finite durations. A
// missing or zero duration becomes DefaultDuration with a warning, unless
// strict mode is on. Dependencies on names outside the batch and repeated
// names only produce warnings.
//
// # Ordering
//
// Order performs a depth-first traversal in input order and reports cycles
// as a *CycleError carrying the offending path.
package tasks

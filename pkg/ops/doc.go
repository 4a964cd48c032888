// SPDX-License-Identifier: MPL-2.0

// Package ops defines the operation protocol used to mutate resource
// properties. A single Operation value describes one of add, change, rank,
// remove or replaceAll, and Apply executes it against an ordered collection
// without mutating the caller's slice. The same vocabulary is used for every
// array-typed property on every resource type, so operations travel as JSON
// through the CLI and are resolved against concrete element types here.
package ops

// SPDX-License-Identifier: MPL-2.0

// Package schema validates resource content documents against embedded CUE
// definitions. Each resource type carries a fixed schema identifier (for
// example "#CardType"); Validate unifies the JSON content with that
// definition and reports every violation with a JSON path prefix.
//
// The Validator is an explicit dependency constructed once per project and
// passed to resources, never a process-wide singleton.
package schema

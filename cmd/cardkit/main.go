// SPDX-License-Identifier: MPL-2.0

// Command cardkit manages a card project's resources: card types, workflows,
// field types, link types, templates, reports, graph models and views, and
// calculations.
package main

func main() {
	Execute()
}

// SPDX-License-Identifier: MPL-2.0

// Package config loads the user-level cardkit configuration and the
// per-project cardsConfig.json document.
//
// The user config lives in the platform configuration directory
// (~/.config/cardkit/config.json on Linux) and carries preferences only;
// everything a project needs to be opened by another machine lives in the
// project's own cardsConfig.json.
package config

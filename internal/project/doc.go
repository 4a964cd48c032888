// SPDX-License-Identifier: MPL-2.0

// Package project is the composition root for one card project. It wires the
// project configuration, schema validator, card store, audit logger and
// resource registry together and serializes every resource mutation behind a
// single lock, keeping the registry's single-writer assumption honest.
package project

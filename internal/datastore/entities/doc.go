// Package entities defines the GORM entity models of the camtrap record store.
//
// # Core Entities
//
//   - Event: one camera-trap trigger (device, time span, primary species, artifacts)
//   - Detection: the 1:1 machine detection result of an Event, with its raw payload,
//     detected and overridden species lists and per-species peak counts
//   - Behavior: an operator-annotated time interval within an Event
//   - BehaviorChoice: the catalog of behavior descriptions offered to operators
//
// Semi-structured detection fields are stored as JSON text columns through the
// SpeciesList, SpeciesCounts and RawDocument types. The nested max confidence of the
// payload is extracted into its own column when a Detection is created.
package entities

// Package component defines the lifecycle interface shared by the parts of
// a callguard process and a registry that starts, stops and health-checks
// them in a deterministic order.
//
// # Interfaces
//
//   - Component: Name/Start/Stop/Health lifecycle
//   - Describable: startup summary descriptions
//
// ManagerComponent adapts a resilience.Manager so its circuit state is
// reported as component health.
package component

// Package registry defines the boundary with the external resource
// registry: a subscribe capability delivering add/remove notifications for
// entries matching a filter, and a synchronous lookup capability. The flow
// engine consumes this interface and owns neither persistence nor a
// discovery protocol.
//
// Notifications are delivered synchronously on whichever goroutine mutates
// the registry; the engine propagates them on that same call stack. The
// package also ships an in-memory implementation used in tests and
// single-process setups, and an LDAP-style filter language for selecting
// entries by their properties.
package registry

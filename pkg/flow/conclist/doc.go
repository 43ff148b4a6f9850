// Package conclist provides a lock-free concurrent list used by n-ary flow
// combinators to track the set of currently live participants of one stage.
//
// The list supports O(1) append, O(1) idempotent removal through node
// handles, and weakly consistent snapshots that may run concurrently with
// mutation. It is the only synchronization point shared between flow stages;
// everything else is confined to the call stack of the propagating
// notification.
package conclist

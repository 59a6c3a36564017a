// Package store implements the hivenode node store. Nodes are kept in SQLite
// and all requests come in over NATS, so every change can be observed on the
// node.<id>.changed subjects.
package store

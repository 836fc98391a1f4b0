// Package store provides the durable key-value storage for attendance snapshots.
// SQLite keeps key/value pairs in a single table with WAL journal, and Snapshot maps
// the subject list to one key on top of any KV.
package store

// Package routes defines the subscription table abstractions for the edge
// agent's routing layer.
//
//   - MessageHandler: the callable a subscription attaches to a filter
//   - Entry: one (filter, qos) registration, as replayed on reconnect
//   - Table: the thread-safe filter -> handler mapping with
//     most-specific-match resolution
//
// The in-memory implementation lives in internal/routes. Table state is
// pure process state: it is not persisted and is rebuilt from scratch by
// the caller after a restart.
//
// Resolution picks, among all stored filters matching a topic, the one
// with the highest topics.Specificity score. When two distinct filters of
// identical specificity both match, the choice between their handlers is
// deliberately unspecified; callers must not rely on it.
package routes

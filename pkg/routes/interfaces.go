package routes

// MessageHandler processes one inbound message. The payload is opaque to
// the routing layer; interpretation belongs to the handler. Outcomes are
// communicated through logging and side effects, not return values.
type MessageHandler func(topic string, payload []byte)

// Entry is one subscription registration as stored in the table. The
// session replays entries as fresh subscribe calls on every reconnect.
type Entry struct {
	// Filter is the topic filter the subscription was registered under.
	Filter string

	// QoS is the quality-of-service level requested at subscribe time.
	QoS byte
}

// Table is a thread-safe mapping from topic filter to handler and QoS.
// Registering a filter that is already present replaces the prior entry.
type Table interface {
	// Add validates the filter syntax and inserts or replaces its entry.
	// The handler may be nil, meaning "matched but no handler registered";
	// Resolve reports that case so the caller can fall back to a default.
	Add(filter string, handler MessageHandler, qos byte) error

	// Remove deletes the entry for filter, if present.
	Remove(filter string)

	// Clear removes all entries.
	Clear()

	// Resolve returns the handler of the most specific filter matching
	// topic. The second return distinguishes "no filter matched" (false)
	// from "matched, possibly with a nil handler" (true).
	Resolve(topic string) (MessageHandler, bool)

	// Entries returns a snapshot of all registrations in insertion order.
	Entries() []Entry

	// Len returns the number of registered filters.
	Len() int
}

// Package session defines the connection session abstractions for the
// edge agent.
//
//   - Transport: the black-box publish/subscribe transport the session
//     drives (the MQTT broker connection, in production)
//   - Events: the callbacks a Transport delivers from its network loop
//   - Session: the public lifecycle and routing surface
//   - State: the session's lifecycle state
//
// The transport owns one background delivery goroutine and guarantees
// connect, disconnect, and message callbacks are never invoked
// concurrently with each other. All routing and handler execution runs
// synchronously inside that goroutine; handlers must not block it for
// long or further delivery stalls.
//
// The session does not persist anything. On every successful (re)connect
// it replays the subscription table as fresh subscribe calls, which is
// what makes a subscribe issued while disconnected take effect eventually
// without a pending-operations queue.
package session

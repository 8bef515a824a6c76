// Package topics implements MQTT topic filter matching and specificity
// scoring for the edge agent's routing layer.
//
// A topic filter is a '/'-separated pattern where a segment is one of:
//   - a literal, which must equal the topic segment at that position
//   - "+", the single-level wildcard, which matches exactly one segment
//   - "#", the multi-level wildcard, which matches the remainder of the
//     topic (including zero segments) and is only legal as the final
//     filter segment
//
// The package provides three pure functions:
//   - Validate: syntax check applied at subscribe time
//   - Matches: filter-vs-topic decision
//   - Specificity: a Score used to pick the best filter when several
//     filters match the same topic
//
// Example:
//
//	topics.Matches("sensors/+/temp", "sensors/kiln1/temp") // true
//	topics.Matches("sensors/#", "sensors")                 // true
//	topics.Matches("a/b", "a/b/c")                         // false
//
// Scores order fully literal filters above wildcard filters, and longer
// filters above shorter ones when literal counts tie:
//
//	Specificity("x/y/z").Less(Specificity("x/+/z")) == false
package topics

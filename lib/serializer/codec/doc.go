// Package codec defines the format stage of the serializer pipeline and the per-serializer type registry.
//
// Two implementations live in sub packages:
//
//   - jsoncodec: compact structured text (JSON)
//   - xmlcodec: compact tagged markup (XML)
//
// Both translate Go values through a shared, ordered value graph (internal/graph) and render that graph
// with an existing encoder, so the wire rules for omission, polymorphism, dates and cycles are the same
// for both formats wherever the formats allow it.
//
// Polymorphism:
//
//	Values stored in interface typed positions are written together with the name of their concrete
//	type (see NameOf). On read the name is resolved through a Registry. The markup format additionally
//	refuses to write a concrete type that is not registered.
package codec

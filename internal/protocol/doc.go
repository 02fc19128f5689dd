// Package protocol owns the hub wire contract and its parsing primitives.
//
// Ownership boundary:
// - discriminator enums shared by every frame
// - little-endian field readers/writers
// - sentinel and typed codec errors
//
// Subpackages build on these: frame (common header), schema (message
// records), dispatch (inbound routing), command (outbound builders).
// Nothing here performs I/O or holds shared mutable state.
package protocol

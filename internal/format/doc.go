// Package format parses defmt format strings into fragments.
//
// A format string mixes literal text with directives delimited by braces.
// Each directive names the argument slot it binds to, the on-wire type of
// that argument and an optional display hint:
//
//	{=u8}          next implicit argument, one byte
//	{0=u16:x}      argument 0, two bytes little-endian, rendered in hex
//	{}             next implicit argument, type taken from the entry's signature
//	{=0..4}        bitfield, bits 0 through 3 of a shared backing integer
//	{=fmt#7}       nested value formatted with table entry 7
//	{=?}           nested value whose entry index is read from the wire
//
// Parsing is pure: the same format text and signature always produce the same
// Format. Callers are expected to cache the result per table index.
//
// # Argument slots
//
// Directives without an explicit position take the next implicit slot, left
// to right. Several directives may share a slot: the argument is decoded once
// and rendered by each directive. Bitfields sharing a slot are merged so that
// the backing integer is wide enough for the highest bit any of them uses.
//
// # Thread Safety
//
// Format values are immutable once returned and safe for concurrent use.
package format

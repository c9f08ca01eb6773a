// Package table recovers the defmt symbol table from a compiled firmware image.
//
// Firmware never formats strings. Every log statement is compiled into a
// symbol in the ELF section ".defmt" whose address is the numeric index the
// device sends on the wire and whose name carries the format string and its
// metadata. This package turns those symbols into an immutable Table that
// maps index to Entry.
//
// # Binary access
//
// The package never opens files itself. Build consumes a Binary, which
// enumerates symbols and reads named sections, and optionally a
// LocationSource that recovers source locations from debug info. The
// elfbin package provides both for ELF images.
//
// # Symbol layouts
//
// Two symbol name layouts are understood:
//   - JSON objects: {"package":..,"tag":"defmt_info","data":"x={=u8}",...}
//   - Raw format strings, with severity taken from the address ranges
//     delimited by _defmt_<level>_start and _defmt_<level>_end markers
//
// # Wire-format version
//
// The image embeds exactly one "_defmt_version_ = X" marker symbol. Build
// refuses images whose major version differs from the decoder's, or whose
// minor/patch is newer than the decoder's. No table is returned in that case.
//
// # Thread Safety
//
// A Table is never mutated after Build returns. Parsed formats are cached
// per Table behind a lock, so one Table may be shared by any number of
// concurrently running decoders.
package table

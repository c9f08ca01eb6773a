// Package output prints decoded defmt frames.
//
// The text printer writes one line per frame:
//
//	1.000123 INFO  3 items, tag=ok
//	└─ app::sensor @ src/sensor.rs:42
//
// The JSON printer writes one object per line with the rendered message and
// the decoded arguments, for piping into other log tooling. Both honour a
// Filter on minimum level and on a doublestar glob over the source file.
package output

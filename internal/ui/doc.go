// Package ui holds the terminal styling shared by the defmt-print commands.
//
// Severity levels map to lipgloss styles using a fixed palette. Styles are
// bound to a writer through a lipgloss.Renderer so that colour follows the
// writer, not the process: piping output to a file or setting NO_COLOR turns
// styling off in auto mode, and --color=always forces it back on.
package ui

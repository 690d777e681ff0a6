// Package tui renders CLI output for terminals: the banner, coloured states and markdown reports.
package tui

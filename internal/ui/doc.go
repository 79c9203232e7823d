// Package ui holds the lipgloss palette used to style command line output.
package ui

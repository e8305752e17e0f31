// Package hw provides the board services consumed by the subsystems:
// watchdog, reset, HID output and the side reset lines.
package hw

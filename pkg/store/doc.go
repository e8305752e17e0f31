// Package store emulates a byte addressable EEPROM on top of flash pages.
//
// Writes land in a RAM image. Commit only schedules a flash update; the
// periodic runner coalesces commits and writes the image after a quiet
// period. Subsystems reserve byte ranges with RequestSlice at setup. Bytes
// never written read back as 0xFF.
package store

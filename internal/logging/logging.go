// Package logging is the debug gate for the registry. Operational messages
// go straight through the standard log package with INFO/WARN/ERROR
// prefixes; Debug output is opt-in per command.
package logging

import "log"

// DebugEnabled turns Debug output on. Commands wire it to their -debug flag.
var DebugEnabled bool

// Debug writes a DEBUG-prefixed line when enabled and nothing otherwise.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

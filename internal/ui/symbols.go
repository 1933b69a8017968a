package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess      = "✓" // Operation succeeded
	SymbolFail         = "✗" // Operation failed
	SymbolConnected    = "●" // Port connected
	SymbolDisconnected = "○" // Port not connected
	SymbolWaiting      = "◐" // Request sent, no answer yet
	SymbolCursor       = "›" // Selected row
)

// ConnectionSymbol returns the symbol for a connection icon name.
func ConnectionSymbol(connected bool) string {
	if connected {
		return SymbolConnected
	}
	return SymbolDisconnected
}

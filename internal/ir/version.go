package ir

// Version constants for the IR and the mangling scheme.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// MangleSchemeVersion pins the flat-name grammar. Version 2 marks a
	// const reference with "r" and a mutable one with "R".
	MangleSchemeVersion = "2"

	// CompilerVersion is the flatc version.
	CompilerVersion = "0.1.0"
)

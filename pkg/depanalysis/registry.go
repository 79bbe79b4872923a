// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

// parsersByExt maps a lowercased file extension (including the leading dot)
// to the LanguageParser that understands it. Extensions with no entry are
// treated as non-source for dependency-analysis purposes.
var parsersByExt = map[string]LanguageParser{
	".go": goParser{},

	".py":  pythonParser{},
	".pyi": pythonParser{},

	".js":  javascriptParser{},
	".jsx": javascriptParser{},
	".ts":  javascriptParser{},
	".tsx": javascriptParser{},
	".mjs": javascriptParser{},
	".cjs": javascriptParser{},

	".java": javaParser{},

	".c":   cParser{},
	".h":   cParser{},
	".cc":  cParser{},
	".cpp": cParser{},
	".cxx": cParser{},
	".hpp": cParser{},
	".hh":  cParser{},

	".cs": csharpParser{},
}

package fileinfo

import (
	"path/filepath"
	"strings"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".py":    "python",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".java":  "java",
	".php":   "php",
	".rb":    "ruby",
	".sh":    "shell",
	".bash":  "shell",
	".pl":    "perl",
	".pm":    "perl",
	".lua":   "lua",
	".cs":    "csharp",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
}

// scriptLanguages are languages whose files count as scripts even without
// a shebang line.
var scriptLanguages = map[string]bool{
	"javascript": true,
	"lua":        true,
	"perl":       true,
	"php":        true,
	"python":     true,
	"ruby":       true,
	"shell":      true,
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

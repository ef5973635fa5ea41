package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languageDef pairs a tree-sitter grammar with the capture query used to
// pull out searchable blocks from its parse tree.
type languageDef struct {
	name  string
	lang  *sitter.Language
	query string
}

// textExtensions are chunked as prose rather than parsed as code.
var textExtensions = map[string]bool{
	".md": true, ".mdx": true, ".markdown": true, ".txt": true, ".rst": true,
}

// extToLanguage maps a file extension to a language name understood by the
// registry below. Extensions absent from this map (including .yaml/.yml
// and .json, which produce too many tiny or meaningless blocks to be worth
// syntax-parsing) fall back to a first-lines block.
var extToLanguage = map[string]string{
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
	".rs":  "rust",
	".go":  "go",
	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".cc":  "cpp",
	".cxx": "cpp",
	".hpp": "cpp",
	".hh":  "cpp",
	".java": "java",
	".rb":  "ruby",
	".cs":  "csharp",
	".sh":  "bash",
	".bash": "bash",
	".zsh": "bash",
	".php": "php",
	".kt":  "kotlin",
	".kts": "kotlin",
	".lua": "lua",
}

var registry map[string]languageDef

func init() {
	registry = map[string]languageDef{
		"python": {"python", python.GetLanguage(), `
			(function_definition) @function
			(class_definition) @class
			(decorated_definition) @function
		`},
		"javascript": {"javascript", javascript.GetLanguage(), `
			(function_declaration) @function
			(class_declaration) @class
			(arrow_function) @function
		`},
		"typescript": {"typescript", typescript.GetLanguage(), `
			(function_declaration) @function
			(class_declaration) @class
			(interface_declaration) @class
			(arrow_function) @function
		`},
		"tsx": {"tsx", tsx.GetLanguage(), `
			(function_declaration) @function
			(class_declaration) @class
			(interface_declaration) @class
			(arrow_function) @function
		`},
		"rust": {"rust", rust.GetLanguage(), `
			(function_item) @function
			(impl_item) @class
			(struct_item) @class
			(trait_item) @class
			(enum_item) @class
		`},
		"go": {"go", golang.GetLanguage(), `
			(function_declaration) @function
			(method_declaration) @function
			(type_declaration) @class
		`},
		"c": {"c", c.GetLanguage(), `
			(function_definition) @function
			(struct_specifier) @class
			(enum_specifier) @class
		`},
		"cpp": {"cpp", cpp.GetLanguage(), `
			(function_definition) @function
			(class_specifier) @class
			(struct_specifier) @class
		`},
		"java": {"java", java.GetLanguage(), `
			(method_declaration) @function
			(constructor_declaration) @function
			(class_declaration) @class
			(interface_declaration) @class
		`},
		"ruby": {"ruby", ruby.GetLanguage(), `
			(method) @function
			(singleton_method) @function
			(class) @class
			(module) @class
		`},
		"csharp": {"csharp", csharp.GetLanguage(), `
			(method_declaration) @function
			(constructor_declaration) @function
			(class_declaration) @class
			(interface_declaration) @class
			(struct_declaration) @class
		`},
		"bash": {"bash", bash.GetLanguage(), `(function_definition) @function`},
		"php": {"php", php.GetLanguage(), `
			(function_definition) @function
			(method_declaration) @function
			(class_declaration) @class
			(interface_declaration) @class
			(trait_declaration) @class
		`},
		"kotlin": {"kotlin", kotlin.GetLanguage(), `
			(function_declaration) @function
			(class_declaration) @class
			(object_declaration) @class
		`},
		"lua": {"lua", lua.GetLanguage(), `
			(function_declaration) @function
			(function_definition) @function
		`},
	}
}

// languageForExt returns the registered language and its capture query for
// a file extension, or ok=false if none is registered (YAML, JSON, and
// anything unrecognized fall through to the first-lines fallback).
func languageForExt(ext string) (languageDef, bool) {
	name, ok := extToLanguage[strings.ToLower(ext)]
	if !ok {
		return languageDef{}, false
	}
	def, ok := registry[name]
	return def, ok
}

// isTextExtension reports whether ext should be chunked as prose.
func isTextExtension(ext string) bool {
	return textExtensions[strings.ToLower(ext)]
}

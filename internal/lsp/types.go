// Package lsp defines the wire-level types exchanged with an editor over
// the JSON-RPC transport (internal/rpc). This package only types the
// payloads the core engine (forest/completion/format/diagnostics/symbols/
// inlay) produces and consumes.
package lsp

// Position is zero-based (line, UTF-16 code unit column), the LSP convention.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location pairs a URI with a Range.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// TextEdit replaces the text in Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit groups TextEdits by document URI for an atomic multi-file
// change, as used by rename.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes"`
}

// DiagnosticSeverity mirrors the LSP enum; only Error and Warning are used
// by this server.
type DiagnosticSeverity int

const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

// Diagnostic is one validator finding or syntax error attached to a range.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity"`
	Source   string             `json:"source"`
	Message  string             `json:"message"`
}

// CompletionItemKind mirrors the subset of the LSP enum this server emits.
type CompletionItemKind int

const (
	KindText     CompletionItemKind = 1
	KindMethod   CompletionItemKind = 2
	KindValue    CompletionItemKind = 12
	KindEnum     CompletionItemKind = 13
	KindKeyword  CompletionItemKind = 14
	KindSnippet  CompletionItemKind = 15
	KindColor    CompletionItemKind = 16
	KindFile     CompletionItemKind = 17
	KindUnit     CompletionItemKind = 11
	KindConstant CompletionItemKind = 21
)

// CompletionItem is one candidate returned from textDocument/completion.
// TextEdit anchors the replacement to the candidate's prefix range, so
// editors apply it as a TextEdit rather than as plain insertText.
type CompletionItem struct {
	Label    string             `json:"label"`
	Kind     CompletionItemKind `json:"kind"`
	Detail   string             `json:"detail,omitempty"`
	SortText string             `json:"sortText,omitempty"`
	TextEdit *TextEdit          `json:"textEdit,omitempty"`
}

// InlayHintKind mirrors the LSP enum (Type=1, Parameter=2); this server
// only ever emits Type hints for balance annotations.
type InlayHintKind int

const (
	InlayHintKindType InlayHintKind = 1
)

// InlayHint is one balancing or unbalanced-total annotation.
type InlayHint struct {
	Position Position      `json:"position"`
	Label    string        `json:"label"`
	Kind     InlayHintKind `json:"kind"`
	PaddingLeft bool       `json:"paddingLeft,omitempty"`
}

// SymbolKind enumerates the renameable/referenceable symbol occurrence
// kinds.
type SymbolKind int

const (
	SymbolAccount SymbolKind = iota
	SymbolPayee
	SymbolNarration
	SymbolTag
	SymbolLink
	SymbolCurrency
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolAccount:
		return "account"
	case SymbolPayee:
		return "payee"
	case SymbolNarration:
		return "narration"
	case SymbolTag:
		return "tag"
	case SymbolLink:
		return "link"
	case SymbolCurrency:
		return "currency"
	default:
		return "unknown"
	}
}

// SemanticTokenType enumerates the token types this server advertises.
type SemanticTokenType int

const (
	TokenNumber SemanticTokenType = iota
	TokenProperty
	TokenType
	TokenLabel
	TokenString
	TokenConstant
	TokenComment
)

// WorkDoneProgress mirrors the subset of $/progress payloads the
// dispatcher emits around long-running diagnostics runs.
type WorkDoneProgress struct {
	Kind        string `json:"kind"` // "begin" | "report" | "end"
	Title       string `json:"title,omitempty"`
	Message     string `json:"message,omitempty"`
	Cancellable bool   `json:"cancellable,omitempty"`
}

// Clamp returns p constrained to a document whose last line has index
// lastLine and is lastLineLen UTF-16 units long, so callers never panic
// on an out-of-range position.
func (p Position) Clamp(lastLine, lastLineLen int) Position {
	if p.Line < 0 {
		return Position{Line: 0, Character: 0}
	}
	if p.Line > lastLine {
		return Position{Line: lastLine, Character: lastLineLen}
	}
	if p.Line == lastLine && p.Character > lastLineLen {
		return Position{Line: lastLine, Character: lastLineLen}
	}
	if p.Character < 0 {
		return Position{Line: p.Line, Character: 0}
	}
	return p
}

package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/rpal/compiler"
	"github.com/chazu/rpal/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "rpal-lsp"

var lspLog = commonlog.GetLogger("rpal.lsp")

// LspServer provides editor features for RPAL source files. Everything it
// reports comes from parsing and standardizing the open documents; nothing
// is evaluated.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]*document // URI → analyzed document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// document is an open file and what the front end made of it.
type document struct {
	text     string
	root     *compiler.Node // raw tree, nil when parsing failed
	err      error
	bindings []binding
}

// binding is a name introduced by a definition or a bound variable.
type binding struct {
	name string
	pos  compiler.Position
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Infof("RPAL LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := analyze(params.TextDocument.Text)

	s.mu.Lock()
	s.docs[string(uri)] = doc
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			doc := analyze(whole.Text)

			s.mu.Lock()
			s.docs[string(uri)] = doc
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, doc)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) lookup(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	return doc, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return doc.complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return doc.hover(word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	doc, ok := s.lookup(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	b, ok := doc.definition(word, params.Position)
	if !ok {
		return nil, nil
	}
	return protocol.Location{URI: uri, Range: nameRange(b.pos, b.name)}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	doc, ok := s.lookup(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}

	var locations []protocol.Location
	for _, pos := range doc.references(word) {
		locations = append(locations, protocol.Location{URI: uri, Range: nameRange(pos, word)})
	}
	return locations, nil
}

// --- Document analysis ---

// analyze parses text, checks that it standardizes and builds, and
// collects the names it binds.
func analyze(text string) *document {
	doc := &document{text: text}
	root, err := compiler.Parse(text)
	if err != nil {
		doc.err = err
		return doc
	}
	doc.root = root
	doc.bindings = collectBindings(root)
	if _, err := compiler.CompileTree(root.Clone()); err != nil {
		doc.err = err
	}
	return doc
}

// collectBindings lists bound names in source order.
func collectBindings(root *compiler.Node) []binding {
	var out []binding
	bound := func(n *compiler.Node) {
		switch n.Kind {
		case compiler.KindIdentifier:
			out = append(out, binding{n.Value, n.Pos})
		case compiler.KindComma:
			for _, c := range n.Children {
				if c.Kind == compiler.KindIdentifier {
					out = append(out, binding{c.Value, c.Pos})
				}
			}
		}
	}
	root.Walk(func(n *compiler.Node, _ int) bool {
		switch n.Kind {
		case compiler.KindEqual:
			if len(n.Children) > 0 {
				bound(n.Children[0])
			}
		case compiler.KindLambda, compiler.KindFcnForm:
			for i := 0; i < len(n.Children)-1; i++ {
				bound(n.Children[i])
			}
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return before(out[i].pos, out[j].pos) })
	return out
}

func before(a, b compiler.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

func (d *document) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	for _, b := range d.bindings {
		add(b.name, protocol.CompletionItemKindVariable, "bound at "+b.pos.String())
	}
	for _, name := range vm.BuiltinNames() {
		add(name, protocol.CompletionItemKindFunction, "built-in")
	}
	keywords := compiler.ReservedWords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func (d *document) hover(word string) *protocol.Hover {
	var b strings.Builder
	switch {
	case compiler.IsReserved(word):
		fmt.Fprintf(&b, "**%s** (keyword)", word)
		if doc, ok := keywordDocs[word]; ok {
			b.WriteString("\n\n")
			b.WriteString(doc)
		}
	default:
		var sites []string
		for _, bd := range d.bindings {
			if bd.name == word {
				sites = append(sites, bd.pos.String())
			}
		}
		if len(sites) > 0 {
			fmt.Fprintf(&b, "**%s** bound at %s", word, strings.Join(sites, ", "))
		}
		if doc, ok := vm.BuiltinDoc(word); ok {
			if b.Len() > 0 {
				b.WriteString("\n\n---\n\n")
			}
			fmt.Fprintf(&b, "**%s** (built-in)\n\n%s", word, doc)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// definition returns the nearest binding of word at or before the cursor,
// falling back to the first binding in the document.
func (d *document) definition(word string, at protocol.Position) (binding, bool) {
	cursor := compiler.Position{Line: int(at.Line) + 1, Column: int(at.Character) + 1}
	var (
		found bool
		best  binding
	)
	for _, b := range d.bindings {
		if b.name != word {
			continue
		}
		if !found || !before(cursor, b.pos) {
			best, found = b, true
		}
		if before(cursor, b.pos) {
			break
		}
	}
	return best, found
}

// references returns every occurrence of the identifier word.
func (d *document) references(word string) []compiler.Position {
	if d.root == nil {
		return nil
	}
	var out []compiler.Position
	d.root.Walk(func(n *compiler.Node, _ int) bool {
		if n.Kind == compiler.KindIdentifier && n.Value == word {
			out = append(out, n.Pos)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out
}

var keywordDocs = map[string]string{
	"let":    "`let D in E` evaluates E with the definitions D in scope.",
	"in":     "Separates the definitions of a `let` from its body.",
	"where":  "`E where D` evaluates E with the definitions D in scope.",
	"within": "`D1 within D2` makes D1 visible to D2 only.",
	"fn":     "`fn x . E` is an anonymous function of x.",
	"rec":    "`rec D` lets the definition D refer to itself.",
	"and":    "`D1 and D2` defines names simultaneously.",
	"aug":    "`T aug x` is a new tuple with x appended to T.",
	"or":     "Logical disjunction of two truthvalues.",
	"not":    "Logical negation of a truthvalue.",
	"gr":     "Integer greater-than, also written `>`.",
	"ge":     "Integer greater-or-equal, also written `>=`.",
	"ls":     "Integer less-than, also written `<`.",
	"le":     "Integer less-or-equal, also written `<=`.",
	"eq":     "Equality of two integers, strings or truthvalues.",
	"ne":     "Inequality of two integers, strings or truthvalues.",
	"true":   "The truthvalue true.",
	"false":  "The truthvalue false.",
	"nil":    "The empty tuple.",
	"dummy":  "The dummy value.",
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	diagnostics := []protocol.Diagnostic{}
	for _, d := range Diagnostics(doc.err) {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		start := protocol.Position{}
		if d.Line > 0 {
			start = protocol.Position{Line: protocol.UInteger(d.Line - 1), Character: protocol.UInteger(max(d.Column-1, 0))}
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: protocol.Position{Line: start.Line, Character: start.Character + 1}},
			Severity: &severity,
			Source:   &source,
			Message:  d.Kind + ": " + d.Message,
		})
	}
	if len(diagnostics) > 0 {
		lspLog.Debugf("%s: %d diagnostics", uri, len(diagnostics))
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// nameRange covers name starting at the 1-based source position pos.
func nameRange(pos compiler.Position, name string) protocol.Range {
	start := protocol.Position{Line: protocol.UInteger(max(pos.Line-1, 0)), Character: protocol.UInteger(max(pos.Column-1, 0))}
	return protocol.Range{
		Start: start,
		End:   protocol.Position{Line: start.Line, Character: start.Character + protocol.UInteger(len(name))},
	}
}

// --- Text extraction helpers ---

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(rune(line[end])) {
		end++
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}

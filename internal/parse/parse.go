// Package parse turns source files into shared syntax trees with
// tree-sitter.
//
// Every tree-sitter node becomes one hast node of the same type. Named
// leaves (identifiers, literals, comments) carry their source text as the
// label; anonymous tokens (keywords, punctuation) carry no label since
// their type already is their text.
package parse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/arbor/internal/hast"
)

// ErrUnsupportedLanguage is returned for languages and file extensions
// with no grammar.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Parser converts source into nodes of one hast.Store. It is safe for
// concurrent use; each call gets its own tree-sitter parser.
type Parser struct {
	store     *hast.Store
	overrides map[string]string
	logger    *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLanguages maps extra file extensions (".h") to language names
// ("cpp"), taking precedence over the built-in table.
func WithLanguages(m map[string]string) Option {
	return func(p *Parser) {
		for ext, lang := range m {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			p.overrides[strings.ToLower(ext)] = lang
		}
	}
}

// WithLogger sets the logger for syntax error warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New creates a Parser writing into store.
func New(store *hast.Store, opts ...Option) *Parser {
	p := &Parser{store: store, overrides: make(map[string]string), logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language resolves the language of path, honoring overrides.
func (p *Parser) Language(path string) (string, error) {
	if lang, ok := p.overrides[strings.ToLower(filepath.Ext(path))]; ok {
		return lang, nil
	}
	if lang, ok := LanguageForFile(path); ok {
		return lang, nil
	}
	return "", fmt.Errorf("parse: %w: %s", ErrUnsupportedLanguage, filepath.Base(path))
}

// ParseFile reads and parses path. It returns the root and the language.
func (p *Parser) ParseFile(ctx context.Context, path string) (hast.NodeID, string, error) {
	lang, err := p.Language(path)
	if err != nil {
		return 0, "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, "", fmt.Errorf("parse: reading %s: %w", path, err)
	}
	root, err := p.Parse(ctx, lang, src)
	if err != nil {
		return 0, "", err
	}
	return root, lang, nil
}

// Parse converts src in language lang. Syntax errors do not fail the parse;
// tree-sitter recovers and the tree keeps ERROR nodes.
func (p *Parser) Parse(ctx context.Context, lang string, src []byte) (hast.NodeID, error) {
	grammar, ok := Grammar(lang)
	if !ok {
		return 0, fmt.Errorf("parse: %w: %q", ErrUnsupportedLanguage, lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return 0, fmt.Errorf("parse: tree-sitter parse failed: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		p.logger.Warn("source has syntax errors", "language", lang, "bytes", len(src))
	}
	return p.convert(root, src), nil
}

func (p *Parser) convert(n *sitter.Node, src []byte) hast.NodeID {
	count := int(n.ChildCount())
	if count == 0 {
		label := hast.NoLabel
		if n.IsNamed() {
			label = p.store.Intern(n.Content(src))
		}
		return p.store.Insert(n.Type(), label, nil)
	}
	children := make([]hast.NodeID, count)
	for i := range count {
		children[i] = p.convert(n.Child(i), src)
	}
	return p.store.Insert(n.Type(), hast.NoLabel, children)
}

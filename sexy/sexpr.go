package sexy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeDouble
	NodeBoolean
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "Symbol"
	case NodeString:
		return "String"
	case NodeInteger:
		return "Integer"
	case NodeDouble:
		return "Double"
	case NodeBoolean:
		return "Bool"
	case NodeList:
		return "List"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node represents any Sexy data structure
type Node struct {
	Type NodeType

	Text    string  // NodeSymbol, NodeString
	Integer int64   // NodeInteger
	Double  float64 // NodeDouble
	Boolean bool    // NodeBoolean

	Items []*Node // NodeList

	// Extra attributes for NodeList, stored as parallel slices.
	MetaKeys  []string
	MetaItems []*Node

	// Pos is the byte offset of the node in the parsed input, or -1 for
	// nodes built in memory.
	Pos int
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol:
		return n.Text
	case NodeString:
		return quote(n.Text)
	case NodeInteger:
		return strconv.FormatInt(n.Integer, 10)
	case NodeDouble:
		return formatDouble(n.Double)
	case NodeBoolean:
		if n.Boolean {
			return "true"
		}
		return "false"
	case NodeList:
		var parts []string
		// Metadata goes at the beginning if present
		if len(n.MetaKeys) > 0 {
			var metaParts []string
			for i, key := range n.MetaKeys {
				if i < len(n.MetaItems) {
					metaParts = append(metaParts, fmt.Sprintf("%s: %s", key, n.MetaItems[i].String()))
				}
			}
			if len(metaParts) > 0 {
				parts = append(parts, fmt.Sprintf("^{%s}", strings.Join(metaParts, ", ")))
			}
		}
		for _, item := range n.Items {
			parts = append(parts, item.String())
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, " "))
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// formatDouble always yields text the lexer reads back as a double.
func formatDouble(d float64) string {
	s := strconv.FormatFloat(d, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEn") {
		return s
	}
	return s + ".0"
}

// Helper constructors for common node types
func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name, Pos: -1}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value, Pos: -1}
}

func NewInteger(value int64) *Node {
	return &Node{Type: NodeInteger, Integer: value, Pos: -1}
}

func NewDouble(value float64) *Node {
	return &Node{Type: NodeDouble, Double: value, Pos: -1}
}

func NewBoolean(value bool) *Node {
	return &Node{Type: NodeBoolean, Boolean: value, Pos: -1}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items, Pos: -1}
}

func NewListWithMeta(items []*Node, metaKeys []string, metaItems []*Node) *Node {
	return &Node{Type: NodeList, Items: items, MetaKeys: metaKeys, MetaItems: metaItems, Pos: -1}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// Len returns the number of positional items of a list.
func (n *Node) Len() int {
	return len(n.Items)
}

// At returns the positional item at index i, or nil when out of range.
func (n *Node) At(i int) *Node {
	if i < 0 || i >= len(n.Items) {
		return nil
	}
	return n.Items[i]
}

// Tag returns the text of the leading symbol of a list, or "".
func (n *Node) Tag() string {
	if n.Type != NodeList || len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return ""
	}
	return n.Items[0].Text
}

// Add appends positional items and returns the node for chaining.
func (n *Node) Add(items ...*Node) *Node {
	n.Items = append(n.Items, items...)
	return n
}

// Meta looks up an extra attribute. It returns nil if the key is absent.
func (n *Node) Meta(key string) *Node {
	for i, k := range n.MetaKeys {
		if k == key && i < len(n.MetaItems) {
			return n.MetaItems[i]
		}
	}
	return nil
}

// HasMeta reports whether an extra attribute is present.
func (n *Node) HasMeta(key string) bool {
	return n.Meta(key) != nil
}

// SetMeta sets an extra attribute, replacing an existing value for key.
func (n *Node) SetMeta(key string, value *Node) *Node {
	for i, k := range n.MetaKeys {
		if k == key {
			n.MetaItems[i] = value
			return n
		}
	}
	n.MetaKeys = append(n.MetaKeys, key)
	n.MetaItems = append(n.MetaItems, value)
	return n
}

// Equal reports whether two trees are structurally equal. Extra attributes
// are compared as an unordered table; positions are ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case NodeSymbol, NodeString:
		return a.Text == b.Text
	case NodeInteger:
		return a.Integer == b.Integer
	case NodeDouble:
		return a.Double == b.Double
	case NodeBoolean:
		return a.Boolean == b.Boolean
	}
	if len(a.Items) != len(b.Items) || len(a.MetaKeys) != len(b.MetaKeys) {
		return false
	}
	for i := range a.Items {
		if !Equal(a.Items[i], b.Items[i]) {
			return false
		}
	}
	for i, key := range a.MetaKeys {
		if !b.HasMeta(key) || !Equal(a.MetaItems[i], b.Meta(key)) {
			return false
		}
	}
	return true
}

// SortedMetaKeys returns the extra attribute keys in lexical order.
func (n *Node) SortedMetaKeys() []string {
	keys := append([]string(nil), n.MetaKeys...)
	sort.Strings(keys)
	return keys
}

type parser struct {
	lexer        *lexer
	currentToken token
	peekToken    token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()
	p.nextToken()

	result, err := p.ParseDatum()
	if len(p.lexer.errors) > 0 {
		// Lexer errors take priority because they might cause confusing parser errors.
		return nil, fmt.Errorf("%s", p.lexer.errors[0])
	}
	if err != nil {
		return nil, err
	}

	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("expected EOF but got %s", p.currentToken.Type)
	}

	return result, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.nextToken()
}

func (p *parser) ParseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		p.nextToken()
		return &Node{Type: NodeSymbol, Text: tok.Value, Pos: tok.Position}, nil
	case tokenBoolean:
		p.nextToken()
		return &Node{Type: NodeBoolean, Boolean: tok.Value == "true", Pos: tok.Position}, nil
	case tokenString:
		p.nextToken()
		return &Node{Type: NodeString, Text: tok.Value, Pos: tok.Position}, nil
	case tokenInteger:
		return p.parseInteger()
	case tokenDouble:
		return p.parseDouble()
	case tokenLParen:
		return p.parseList()
	default:
		return nil, fmt.Errorf("unexpected token: %s", tok.Type)
	}
}

func (p *parser) parseInteger() (*Node, error) {
	tok := p.currentToken
	value, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %s: %w", tok.Value, err)
	}
	p.nextToken()
	return &Node{Type: NodeInteger, Integer: value, Pos: tok.Position}, nil
}

func (p *parser) parseDouble() (*Node, error) {
	tok := p.currentToken
	value, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid double %s: %w", tok.Value, err)
	}
	p.nextToken()
	return &Node{Type: NodeDouble, Double: value, Pos: tok.Position}, nil
}

func (p *parser) parseList() (*Node, error) {
	list := &Node{Type: NodeList, Pos: p.currentToken.Position}
	p.nextToken() // consume '('

	for p.currentToken.Type != tokenRParen && p.currentToken.Type != tokenEOF {
		if p.currentToken.Type == tokenCaret {
			// Metadata may appear anywhere in the list; later keys win.
			if err := p.parseMeta(list); err != nil {
				return nil, err
			}
			continue
		}
		item, err := p.ParseDatum()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}

	if p.currentToken.Type != tokenRParen {
		return nil, fmt.Errorf("expected ')' but got %s", p.currentToken.Type)
	}
	p.nextToken() // consume ')'
	return list, nil
}

func (p *parser) parseMeta(list *Node) error {
	p.nextToken() // consume '^'

	if p.currentToken.Type != tokenLBrace {
		return fmt.Errorf("expected '{' after '^' but got %s", p.currentToken.Type)
	}
	p.nextToken() // consume '{'

	for p.currentToken.Type != tokenRBrace && p.currentToken.Type != tokenEOF {
		if p.currentToken.Type != tokenSymbol {
			return fmt.Errorf("expected symbol for map key but got %s", p.currentToken.Type)
		}
		key := p.currentToken.Value
		p.nextToken()

		if p.currentToken.Type != tokenColon {
			return fmt.Errorf("expected ':' after map key but got %s", p.currentToken.Type)
		}
		p.nextToken()

		value, err := p.ParseDatum()
		if err != nil {
			return err
		}
		list.SetMeta(key, value)

		if p.currentToken.Type == tokenComma {
			p.nextToken()
		} else if p.currentToken.Type != tokenRBrace {
			return fmt.Errorf("expected ',' or '}' in map but got %s", p.currentToken.Type)
		}
	}

	if p.currentToken.Type != tokenRBrace {
		return fmt.Errorf("expected '}' but got %s", p.currentToken.Type)
	}
	p.nextToken() // consume '}'
	return nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenDouble
	tokenBoolean
	tokenLParen
	tokenRParen
	tokenLBrace
	tokenRBrace
	tokenColon
	tokenComma
	tokenCaret
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenDouble:
		return "double"
	case tokenBoolean:
		return "boolean"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenColon:
		return "':'"
	case tokenComma:
		return "','"
	case tokenCaret:
		return "'^'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type     tokenType
	Value    string
	Position int
}

type lexer struct {
	input    string
	position int
	current  rune
	errors   []string
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.position >= len(l.input) {
		l.current = 0
	} else {
		l.current = rune(l.input[l.position])
	}
	l.position++
}

func (l *lexer) peekChar() rune {
	if l.position >= len(l.input) {
		return 0
	}
	return rune(l.input[l.position])
}

func (l *lexer) skipWhitespace() {
	for unicode.IsSpace(l.current) {
		l.readChar()
	}
}

func (l *lexer) skipComment() {
	for l.current != '\n' && l.current != '\r' && l.current != 0 {
		l.readChar()
	}
}

// readSymbol reads a maximal run of non-delimiter characters. A colon that
// ends the run is left for the map syntax (`key: value`).
func (l *lexer) readSymbol() string {
	start := l.position - 1
	for !isDelimiter(l.current) {
		if l.current == ':' && isDelimiter(l.peekChar()) {
			break
		}
		l.readChar()
	}
	return l.input[start : l.position-1]
}

func (l *lexer) readString() (string, error) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.current != '"' && l.current != 0 {
		if l.current == '\\' {
			l.readChar()
			switch l.current {
			case '"':
				result.WriteByte('"')
			case '\\':
				result.WriteByte('\\')
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.current)
			}
		} else {
			result.WriteByte(byte(l.current))
		}
		l.readChar()
	}

	if l.current != '"' {
		return "", fmt.Errorf("unterminated string")
	}
	l.readChar() // skip closing quote

	return result.String(), nil
}

// readNumber reads an integer or a double and reports which it found.
func (l *lexer) readNumber() (string, tokenType) {
	start := l.position - 1
	typ := tokenInteger
	if l.current == '+' || l.current == '-' {
		l.readChar()
	}
	for unicode.IsDigit(l.current) {
		l.readChar()
	}
	if l.current == '.' && unicode.IsDigit(l.peekChar()) {
		typ = tokenDouble
		l.readChar()
		for unicode.IsDigit(l.current) {
			l.readChar()
		}
	}
	if l.current == 'e' || l.current == 'E' {
		typ = tokenDouble
		l.readChar()
		if l.current == '+' || l.current == '-' {
			l.readChar()
		}
		for unicode.IsDigit(l.current) {
			l.readChar()
		}
	}
	if !isDelimiter(l.current) {
		for !isDelimiter(l.current) {
			l.readChar()
		}
		l.errors = append(l.errors, fmt.Sprintf("malformed number '%s'", l.input[start:l.position-1]))
	}
	return l.input[start : l.position-1], typ
}

func (l *lexer) nextToken() token {
	for {
		l.skipWhitespace()

		pos := l.position - 1

		switch l.current {
		case 0:
			return token{Type: tokenEOF, Position: pos}
		case ';':
			l.skipComment()
			continue
		case '(':
			l.readChar()
			return token{Type: tokenLParen, Value: "(", Position: pos}
		case ')':
			l.readChar()
			return token{Type: tokenRParen, Value: ")", Position: pos}
		case '{':
			l.readChar()
			return token{Type: tokenLBrace, Value: "{", Position: pos}
		case '}':
			l.readChar()
			return token{Type: tokenRBrace, Value: "}", Position: pos}
		case ',':
			l.readChar()
			return token{Type: tokenComma, Value: ",", Position: pos}
		case '^':
			l.readChar()
			return token{Type: tokenCaret, Value: "^", Position: pos}
		case '[', ']':
			l.errors = append(l.errors, fmt.Sprintf("unexpected character '%c'", l.current))
			return token{Type: tokenEOF, Position: pos}
		case '"':
			str, err := l.readString()
			if err != nil {
				l.errors = append(l.errors, err.Error())
				return token{Type: tokenEOF, Position: pos}
			}
			return token{Type: tokenString, Value: str, Position: pos}
		case ':':
			if isDelimiter(l.peekChar()) {
				l.readChar()
				return token{Type: tokenColon, Value: ":", Position: pos}
			}
			return token{Type: tokenSymbol, Value: l.readSymbol(), Position: pos}
		default:
			if unicode.IsDigit(l.current) ||
				((l.current == '+' || l.current == '-') && unicode.IsDigit(l.peekChar())) {
				text, typ := l.readNumber()
				return token{Type: typ, Value: text, Position: pos}
			}
			symbol := l.readSymbol()
			if symbol == "true" || symbol == "false" {
				return token{Type: tokenBoolean, Value: symbol, Position: pos}
			}
			return token{Type: tokenSymbol, Value: symbol, Position: pos}
		}
	}
}

func isDelimiter(r rune) bool {
	if r == 0 || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '(', ')', '{', '}', '[', ']', '"', ',', ';', '^':
		return true
	}
	return false
}

package sqlscan

import (
	"datashield/internal/domain"
)

// Extract decomposes a single SQL statement into the tables and columns it
// references. Extraction is conservative: statements it cannot confidently
// analyze in full (multiple or compound statements, nested queries, stray
// characters) return an ExtractionError so the caller denies instead of
// executing blind. Every token must be accounted for; an unconsumed tail is
// a failure, not an ignorable remainder.
func Extract(sql string) (*domain.QueryReferences, error) {
	toks, err := tokenize(sql)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, domain.ErrExtraction("empty statement")
	}

	s := &scanner{toks: toks}

	switch s.cur().Type {
	case TOKEN_SELECT:
		return s.extractSelect()
	case TOKEN_INSERT:
		return s.extractInsert()
	case TOKEN_UPDATE:
		return s.extractUpdate()
	case TOKEN_DELETE:
		return s.extractDelete()
	}
	return nil, domain.ErrExtraction("unsupported statement: %q", s.cur().Literal)
}

func tokenize(sql string) ([]Token, error) {
	lex := NewLexer(sql)
	var toks []Token
	sawSemicolon := false
	for {
		tok := lex.NextToken()
		if tok.Type == TOKEN_EOF {
			break
		}
		if tok.Type == TOKEN_ILLEGAL {
			return nil, domain.ErrExtraction("unexpected character %q", tok.Literal)
		}
		if sawSemicolon {
			return nil, domain.ErrExtraction("multiple statements are not supported")
		}
		if tok.Type == TOKEN_SEMICOLON {
			sawSemicolon = true
			continue
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

type scanner struct {
	toks []Token
	pos  int
}

func (s *scanner) cur() Token {
	if s.pos >= len(s.toks) {
		return Token{Type: TOKEN_EOF}
	}
	return s.toks[s.pos]
}

func (s *scanner) peek() Token {
	if s.pos+1 >= len(s.toks) {
		return Token{Type: TOKEN_EOF}
	}
	return s.toks[s.pos+1]
}

func (s *scanner) advance() { s.pos++ }

func (s *scanner) extractSelect() (*domain.QueryReferences, error) {
	refs := &domain.QueryReferences{Kind: domain.StatementSelect}
	s.advance() // SELECT
	if s.cur().Type == TOKEN_DISTINCT {
		s.advance()
	}

	if err := s.scanSelectList(refs); err != nil {
		return nil, err
	}

	if s.cur().Type == TOKEN_FROM {
		s.advance()
		if err := s.scanTableList(refs); err != nil {
			return nil, err
		}
	}
	if err := s.verifyTail(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *scanner) extractInsert() (*domain.QueryReferences, error) {
	refs := &domain.QueryReferences{Kind: domain.StatementInsert}
	s.advance() // INSERT
	if s.cur().Type != TOKEN_INTO {
		return nil, domain.ErrExtraction("malformed INSERT: expected INTO")
	}
	s.advance()

	table, ok := s.scanIdentChain()
	if !ok {
		return nil, domain.ErrExtraction("malformed INSERT: expected table name")
	}
	addUnique(&refs.Tables, table)

	// Optional explicit column list.
	if s.cur().Type == TOKEN_LPAREN {
		s.advance()
		for s.cur().Type != TOKEN_RPAREN && s.cur().Type != TOKEN_EOF {
			if col, ok := s.scanIdentChain(); ok {
				addUnique(&refs.Columns, col)
			} else {
				s.advance()
			}
			if s.cur().Type == TOKEN_COMMA {
				s.advance()
			}
		}
		if s.cur().Type != TOKEN_RPAREN {
			return nil, domain.ErrExtraction("malformed INSERT: unterminated column list")
		}
		s.advance()
	}

	// The row source must be literal VALUES tuples. A SELECT source reads
	// tables this extraction never saw.
	if s.cur().Type != TOKEN_VALUES {
		return nil, domain.ErrExtraction("cannot analyze INSERT source near %q", s.cur().Literal)
	}
	s.advance()
	for {
		if s.cur().Type != TOKEN_LPAREN {
			return nil, domain.ErrExtraction("malformed INSERT: expected row values")
		}
		if err := s.skipParens(); err != nil {
			return nil, err
		}
		if s.cur().Type != TOKEN_COMMA {
			break
		}
		s.advance()
	}
	if s.cur().Type != TOKEN_EOF {
		return nil, domain.ErrExtraction("cannot analyze INSERT near %q", s.cur().Literal)
	}
	return refs, nil
}

func (s *scanner) extractUpdate() (*domain.QueryReferences, error) {
	refs := &domain.QueryReferences{Kind: domain.StatementUpdate}
	s.advance() // UPDATE

	table, ok := s.scanIdentChain()
	if !ok {
		return nil, domain.ErrExtraction("malformed UPDATE: expected table name")
	}
	addUnique(&refs.Tables, table)

	if s.cur().Type != TOKEN_SET {
		return nil, domain.ErrExtraction("malformed UPDATE: expected SET")
	}
	s.advance()

	// Assignment targets are the referenced columns.
	for {
		col, ok := s.scanIdentChain()
		if !ok {
			break
		}
		addUnique(&refs.Columns, col)
		if err := s.skipExpression(); err != nil {
			return nil, err
		}
		if s.cur().Type != TOKEN_COMMA {
			break
		}
		s.advance()
	}
	if err := s.verifyTail(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *scanner) extractDelete() (*domain.QueryReferences, error) {
	refs := &domain.QueryReferences{Kind: domain.StatementDelete}
	s.advance() // DELETE
	if s.cur().Type != TOKEN_FROM {
		return nil, domain.ErrExtraction("malformed DELETE: expected FROM")
	}
	s.advance()

	table, ok := s.scanIdentChain()
	if !ok {
		return nil, domain.ErrExtraction("malformed DELETE: expected table name")
	}
	addUnique(&refs.Tables, table)
	if err := s.verifyTail(); err != nil {
		return nil, err
	}
	return refs, nil
}

// scanSelectList walks the SELECT list up to FROM (or end of statement),
// recording one column per item. A bare or qualified star sets the wildcard
// flag instead. Expressions and function calls contribute no column; the
// wildcard expansion in the gateway covers the underlying data anyway.
func (s *scanner) scanSelectList(refs *domain.QueryReferences) error {
	for {
		if s.cur().Type == TOKEN_FROM || s.cur().Type == TOKEN_EOF {
			return nil
		}
		if err := s.scanSelectItem(refs); err != nil {
			return err
		}
		if s.cur().Type == TOKEN_COMMA {
			s.advance()
			continue
		}
		if s.cur().Type != TOKEN_FROM && s.cur().Type != TOKEN_EOF {
			return domain.ErrExtraction("cannot analyze SELECT list near %q", s.cur().Literal)
		}
	}
}

func (s *scanner) scanSelectItem(refs *domain.QueryReferences) error {
	if s.cur().Type == TOKEN_STAR {
		refs.Wildcard = true
		s.advance()
		return nil
	}

	if s.cur().Type == TOKEN_IDENT {
		// Function call: consume the call and record no column.
		if s.peek().Type == TOKEN_LPAREN {
			s.advance()
			if err := s.skipParens(); err != nil {
				return err
			}
			s.skipAlias()
			return nil
		}

		name, qualifiedStar := s.scanColumnChain()
		if qualifiedStar {
			refs.Wildcard = true
			return nil
		}
		addUnique(&refs.Columns, name)
		s.skipAlias()
		return nil
	}

	// Literals and other expressions reference no column.
	switch s.cur().Type {
	case TOKEN_NUMBER, TOKEN_STRING:
		s.advance()
		s.skipAlias()
		return nil
	}
	return domain.ErrExtraction("cannot analyze SELECT list near %q", s.cur().Literal)
}

// scanTableList walks the FROM clause: comma-separated table references plus
// JOINed tables, collecting each base table name and ignoring aliases.
func (s *scanner) scanTableList(refs *domain.QueryReferences) error {
	for {
		if s.cur().Type == TOKEN_LPAREN {
			return domain.ErrExtraction("cannot analyze subqueries in FROM")
		}
		table, ok := s.scanIdentChain()
		if !ok {
			return domain.ErrExtraction("cannot analyze FROM clause near %q", s.cur().Literal)
		}
		addUnique(&refs.Tables, table)
		s.skipAlias()

		switch {
		case s.cur().Type == TOKEN_COMMA:
			s.advance()
		case s.isJoinStart():
			s.skipToJoinTable()
		case s.cur().Type == TOKEN_ON, s.cur().Type == TOKEN_USING:
			// Join condition for the table just scanned.
			if err := s.skipJoinCondition(); err != nil {
				return err
			}
			if s.cur().Type == TOKEN_COMMA {
				s.advance()
			} else if s.isJoinStart() {
				s.skipToJoinTable()
			} else {
				return nil
			}
		default:
			return nil
		}
	}
}

func (s *scanner) isJoinStart() bool {
	switch s.cur().Type {
	case TOKEN_JOIN, TOKEN_INNER, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL, TOKEN_CROSS:
		return true
	}
	return false
}

// skipToJoinTable consumes join modifiers (INNER, LEFT OUTER, ...) through
// the JOIN keyword, leaving the scanner at the joined table reference.
func (s *scanner) skipToJoinTable() {
	for {
		switch s.cur().Type {
		case TOKEN_INNER, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL, TOKEN_OUTER, TOKEN_CROSS:
			s.advance()
		case TOKEN_JOIN:
			s.advance()
			return
		default:
			return
		}
	}
}

// skipJoinCondition consumes an ON/USING clause up to the next table-list
// position (comma, join keyword, or clause boundary). A nested query inside
// the condition fails extraction.
func (s *scanner) skipJoinCondition() error {
	depth := 0
	for {
		tok := s.cur()
		if tok.Type == TOKEN_EOF {
			return nil
		}
		if isQueryStart(tok.Type) {
			return domain.ErrExtraction("cannot analyze nested queries")
		}
		if depth == 0 {
			if tok.Type == TOKEN_COMMA || s.isJoinStart() || isClauseBoundary(tok.Type) {
				return nil
			}
		}
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
		s.advance()
	}
}

// skipExpression consumes an assignment right-hand side up to the next
// top-level comma or clause boundary. A nested query inside the expression
// fails extraction.
func (s *scanner) skipExpression() error {
	depth := 0
	for {
		tok := s.cur()
		if tok.Type == TOKEN_EOF {
			return nil
		}
		if isQueryStart(tok.Type) {
			return domain.ErrExtraction("cannot analyze nested queries")
		}
		if depth == 0 && (tok.Type == TOKEN_COMMA || isClauseBoundary(tok.Type)) {
			return nil
		}
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
		s.advance()
	}
}

// skipParens consumes a balanced parenthesized group starting at LPAREN.
// A nested query inside the group fails extraction.
func (s *scanner) skipParens() error {
	if s.cur().Type != TOKEN_LPAREN {
		return nil
	}
	depth := 0
	for {
		switch {
		case s.cur().Type == TOKEN_EOF:
			return domain.ErrExtraction("unbalanced parentheses")
		case isQueryStart(s.cur().Type):
			return domain.ErrExtraction("cannot analyze nested queries")
		case s.cur().Type == TOKEN_LPAREN:
			depth++
		case s.cur().Type == TOKEN_RPAREN:
			depth--
			if depth == 0 {
				s.advance()
				return nil
			}
		}
		s.advance()
	}
}

// verifyTail checks that everything after the analyzed clauses is filter and
// ordering material (WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET and
// their expressions). A token that can start another query body fails
// extraction; otherwise a compound statement like UNION would execute with
// only its first branch authorized.
func (s *scanner) verifyTail() error {
	depth := 0
	for s.cur().Type != TOKEN_EOF {
		switch s.cur().Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
			if depth < 0 {
				return domain.ErrExtraction("unbalanced parentheses")
			}
		case TOKEN_WHERE, TOKEN_GROUP, TOKEN_BY, TOKEN_ORDER, TOKEN_HAVING,
			TOKEN_LIMIT, TOKEN_OFFSET, TOKEN_AND, TOKEN_OR, TOKEN_NOT, TOKEN_AS,
			TOKEN_IDENT, TOKEN_NUMBER, TOKEN_STRING, TOKEN_STAR, TOKEN_DOT,
			TOKEN_COMMA, TOKEN_OPERATOR:
		default:
			return domain.ErrExtraction("cannot analyze statement near %q", s.cur().Literal)
		}
		s.advance()
	}
	if depth != 0 {
		return domain.ErrExtraction("unbalanced parentheses")
	}
	return nil
}

// isQueryStart reports whether a token can begin another query body.
func isQueryStart(tt TokenType) bool {
	return tt == TOKEN_SELECT || tt == TOKEN_UNION
}

// skipAlias consumes an optional "AS name" or bare trailing alias.
func (s *scanner) skipAlias() {
	if s.cur().Type == TOKEN_AS {
		s.advance()
		if s.cur().Type == TOKEN_IDENT {
			s.advance()
		}
		return
	}
	if s.cur().Type == TOKEN_IDENT {
		s.advance()
	}
}

// scanIdentChain reads a dotted identifier chain (schema.table, t.col) and
// returns its base name: the last element.
func (s *scanner) scanIdentChain() (string, bool) {
	if s.cur().Type != TOKEN_IDENT {
		return "", false
	}
	name := s.cur().Literal
	s.advance()
	for s.cur().Type == TOKEN_DOT && s.peek().Type == TOKEN_IDENT {
		s.advance()
		name = s.cur().Literal
		s.advance()
	}
	return name, true
}

// scanColumnChain reads a dotted identifier chain in the SELECT list. A
// trailing ".*" reports a qualified star.
func (s *scanner) scanColumnChain() (string, bool) {
	name := s.cur().Literal
	s.advance()
	for s.cur().Type == TOKEN_DOT {
		if s.peek().Type == TOKEN_STAR {
			s.advance()
			s.advance()
			return "", true
		}
		if s.peek().Type != TOKEN_IDENT {
			return name, false
		}
		s.advance()
		name = s.cur().Literal
		s.advance()
	}
	return name, false
}

func addUnique(list *[]string, value string) {
	for _, v := range *list {
		if v == value {
			return
		}
	}
	*list = append(*list, value)
}

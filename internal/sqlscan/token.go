// Package sqlscan provides best-effort extraction of table and column
// references from a single SQL statement.
//
// It is deliberately not a full parser. The lexer tokenizes the statement and
// the extractor walks the token stream for the clauses that matter to
// authorization: the statement kind, the SELECT list, and the FROM clause.
// Anything it cannot confidently decompose is reported as an extraction
// error so the caller denies instead of executing an unanalyzed statement.
package sqlscan

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character

	TOKEN_IDENT  // identifier
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_STRING // 'hello'

	TOKEN_STAR      // *
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_OPERATOR  // =, <, >, +, -, /, %, ||, etc.

	// TOKEN_AND and below are SQL keywords (alphabetical).
	TOKEN_AND
	TOKEN_AS
	TOKEN_BY
	TOKEN_CROSS
	TOKEN_DELETE
	TOKEN_DISTINCT
	TOKEN_FROM
	TOKEN_FULL
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_INNER
	TOKEN_INSERT
	TOKEN_INTO
	TOKEN_JOIN
	TOKEN_LEFT
	TOKEN_LIMIT
	TOKEN_NOT
	TOKEN_OFFSET
	TOKEN_ON
	TOKEN_OR
	TOKEN_ORDER
	TOKEN_OUTER
	TOKEN_RIGHT
	TOKEN_SELECT
	TOKEN_SET
	TOKEN_UNION
	TOKEN_UPDATE
	TOKEN_USING
	TOKEN_VALUES
	TOKEN_WHERE
)

// Token is one lexical token with its literal text.
type Token struct {
	Type    TokenType
	Literal string
}

var keywords = map[string]TokenType{
	"and":      TOKEN_AND,
	"as":       TOKEN_AS,
	"by":       TOKEN_BY,
	"cross":    TOKEN_CROSS,
	"delete":   TOKEN_DELETE,
	"distinct": TOKEN_DISTINCT,
	"from":     TOKEN_FROM,
	"full":     TOKEN_FULL,
	"group":    TOKEN_GROUP,
	"having":   TOKEN_HAVING,
	"inner":    TOKEN_INNER,
	"insert":   TOKEN_INSERT,
	"into":     TOKEN_INTO,
	"join":     TOKEN_JOIN,
	"left":     TOKEN_LEFT,
	"limit":    TOKEN_LIMIT,
	"not":      TOKEN_NOT,
	"offset":   TOKEN_OFFSET,
	"on":       TOKEN_ON,
	"or":       TOKEN_OR,
	"order":    TOKEN_ORDER,
	"outer":    TOKEN_OUTER,
	"right":    TOKEN_RIGHT,
	"select":   TOKEN_SELECT,
	"set":      TOKEN_SET,
	"union":    TOKEN_UNION,
	"update":   TOKEN_UPDATE,
	"using":    TOKEN_USING,
	"values":   TOKEN_VALUES,
	"where":    TOKEN_WHERE,
}

// lookupKeyword returns the keyword token type for a lowercased identifier,
// or TOKEN_IDENT if it is not a keyword.
func lookupKeyword(lower string) TokenType {
	if tt, ok := keywords[lower]; ok {
		return tt
	}
	return TOKEN_IDENT
}

// isClauseBoundary reports whether a token ends the FROM clause's table list.
func isClauseBoundary(tt TokenType) bool {
	switch tt {
	case TOKEN_WHERE, TOKEN_GROUP, TOKEN_ORDER, TOKEN_HAVING,
		TOKEN_LIMIT, TOKEN_OFFSET, TOKEN_UNION, TOKEN_SET,
		TOKEN_SEMICOLON, TOKEN_EOF:
		return true
	}
	return false
}

// Package query fournit un petit langage de requêtes booléennes au-dessus
// de l'index : atomes, AND (explicite ou par juxtaposition), OR et
// parenthèses. L'évaluation s'appuie sur les itérateurs de postings du
// cœur : intersection par sauts (NextSeek) et union par fusion ordonnée.
package query

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `\b(AND|OR)\b`},
	{Name: "Ident", Pattern: `[^\s()]+`},
	{Name: "Parens", Pattern: `[()]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Expr est une disjonction de conjonctions.
type Expr struct {
	Or []*AndExpr `@@ ( "OR" @@ )*`
}

// AndExpr est une conjonction de facteurs ; le AND est optionnel,
// deux atomes juxtaposés s'intersectent.
type AndExpr struct {
	Factors []*Factor `@@ ( "AND"? @@ )*`
}

// Factor est un atome ou une sous-expression parenthésée.
type Factor struct {
	Sub  *Expr  `"(" @@ ")"`
	Atom string `| @Ident`
}

var parser = participle.MustBuild[Expr](
	participle.Lexer(queryLexer),
	participle.UseLookahead(2),
)

// Parse analyse une requête booléenne.
func Parse(input string) (*Expr, error) {
	expr, err := parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("query: parse: %w", err)
	}
	return expr, nil
}

func (e *Expr) String() string {
	s := ""
	for i, a := range e.Or {
		if i > 0 {
			s += " OR "
		}
		s += a.String()
	}
	return s
}

func (a *AndExpr) String() string {
	s := ""
	for i, f := range a.Factors {
		if i > 0 {
			s += " AND "
		}
		s += f.String()
	}
	return s
}

func (f *Factor) String() string {
	if f.Sub != nil {
		return "(" + f.Sub.String() + ")"
	}
	return f.Atom
}

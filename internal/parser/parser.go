package parser

import (
	"strings"

	"bookfinder/internal/query"
)

// Parse is the entry point: it turns shell input such as
// `title:Clean Code author:"Robert Martin"` into a FilterSet.
func Parse(input string) query.FilterSet {
	return NewParser(input).Parse()
}

type Parser struct {
	l      *Lexer
	curTok Token
}

func NewParser(input string) *Parser {
	p := &Parser{l: NewLexer(input)}
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.l.NextToken()
}

// Query -> Words { Field Words }
// Words before the first field belong to q. A repeated field keeps its last value.
func (p *Parser) Parse() query.FilterSet {
	current := query.FieldQ
	values := map[query.Field][]string{}
	var order []query.Field

	for p.curTok.Type != TokenEOF {
		switch p.curTok.Type {
		case TokenField:
			current = query.Field(p.curTok.Value)
			if _, seen := values[current]; !seen {
				order = append(order, current)
			}
			values[current] = []string{}
		default:
			if _, seen := values[current]; !seen {
				order = append(order, current)
			}
			values[current] = append(values[current], p.curTok.Value)
		}
		p.nextToken()
	}

	fs := query.FilterSet{}
	for _, f := range order {
		fs = fs.With(f, strings.Join(values[f], " "))
	}
	return fs
}

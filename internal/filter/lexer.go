package filter

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits a filter expression into tokens. Position information
// is kept for error messages.
func tokenize(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++

		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++

		case r == '\'' || r == '"':
			quote := r
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < len(runes) {
				if runes[i] == quote {
					closed = true
					i++
					break
				}
				sb.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal at position %d", start)
			}
			toks = append(toks, token{tokString, sb.String(), start})

		case r == '=' || r == '<' || r == '>' || r == '!':
			start := i
			op := string(r)
			i++
			if i < len(runes) && (runes[i] == '=' || (r == '<' && runes[i] == '>')) {
				op += string(runes[i])
				i++
			}
			switch op {
			case "=", "==", "!=", "<>", "<", "<=", ">", ">=":
				toks = append(toks, token{tokOp, op, start})
			default:
				return nil, fmt.Errorf("unknown operator %q at position %d", op, start)
			}

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, string(runes[start:i]), start})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '.') {
				i++
			}
			word := string(runes[start:i])
			switch strings.ToUpper(word) {
			case "AND":
				toks = append(toks, token{tokAnd, word, start})
			case "OR":
				toks = append(toks, token{tokOr, word, start})
			case "NOT":
				toks = append(toks, token{tokNot, word, start})
			default:
				toks = append(toks, token{tokIdent, word, start})
			}

		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", string(r), i)
		}
	}

	toks = append(toks, token{tokEOF, "", len(runes)})
	return toks, nil
}

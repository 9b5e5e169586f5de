// Package filter implements the task query language.
//
// An expression is a sequence of terms combined with not, and, or and
// parentheses; not binds tightest, then and, then or, and binary
// operators associate to the left. Terms:
//
//	uuid:<uuid>            exact UUID
//	id:1,2 | 1,2 | 7       any of the short IDs
//	text:<s> | <word>      substring of the description
//	tag:a,b | +a,b         any of the tags, hierarchically (+a matches a.b)
//	created:<ts>           the date field equals the instant exactly
//	due:<ts>
//	scheduled:<ts>
//	flag:blocked           has a pending dependency
//	flag:blocking          a pending task depends on it
//	urgency.above:<n>      urgency >= n
//	urgency.below:<n>      urgency <= n
//
// Leading "(" and trailing ")" characters are always split off an
// argument, so "(a" and "b)" work without spaces. A term cannot end in
// ")": "text:(foo)" reads as "text:(foo" followed by a closing
// parenthesis.
//
// Where an operand is expected, the words and and or are plain text
// terms, as is not when nothing follows it. Adjacent terms are not joined
// implicitly: "a b" is a syntax error, write "a and b". An empty
// expression matches every task.
package filter

import (
	"fmt"
	"strings"

	"github.com/taskdepot/td/internal/task"
)

// SyntaxError reports a malformed filter expression. Pos is the index of
// the offending token after parentheses have been split off, or the
// number of tokens when the expression ended early.
type SyntaxError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("filter syntax error at token %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("filter syntax error at token %d (%q): %s", e.Pos, e.Token, e.Msg)
}

type opKind int

const (
	opLParen opKind = iota
	opOr
	opAnd
	opNot
)

func (k opKind) precedence() int {
	return int(k)
}

func (k opKind) String() string {
	switch k {
	case opOr:
		return "or"
	case opAnd:
		return "and"
	case opNot:
		return "not"
	}
	return "("
}

type op struct {
	kind opKind
	pos  int
}

type notExpr struct {
	x Expr
}

func (e notExpr) Match(t *task.Task) bool { return !e.x.Match(t) }
func (e notExpr) String() string          { return "not " + e.x.String() }

type binaryExpr struct {
	kind        opKind
	left, right Expr
}

func (e binaryExpr) Match(t *task.Task) bool {
	if e.kind == opAnd {
		return e.left.Match(t) && e.right.Match(t)
	}
	return e.left.Match(t) || e.right.Match(t)
}

func (e binaryExpr) String() string {
	return "(" + e.left.String() + " " + e.kind.String() + " " + e.right.String() + ")"
}

// ParseString splits s on whitespace and parses the result.
func ParseString(s string) (Expr, error) {
	return Parse(strings.Fields(s))
}

// Parse parses a filter expression, one token per element. Leading "("
// and trailing ")" characters are split off each token, so
// []string{"(+a", "or", "+b)"} works as expected.
func Parse(args []string) (Expr, error) {
	tokens := tokenize(args)
	if len(tokens) == 0 {
		return all{}, nil
	}

	p := &parser{tokens: tokens}
	return p.parse()
}

// tokenize splits leading "(" and trailing ")" off every argument.
func tokenize(args []string) []string {
	var tokens []string
	for _, arg := range args {
		for strings.HasPrefix(arg, "(") {
			tokens = append(tokens, "(")
			arg = arg[1:]
		}

		closing := 0
		for strings.HasSuffix(arg, ")") {
			closing++
			arg = arg[:len(arg)-1]
		}

		if arg != "" {
			tokens = append(tokens, arg)
		}
		for range closing {
			tokens = append(tokens, ")")
		}
	}
	return tokens
}

// parser is a shunting-yard parser with explicit operator and operand
// stacks.
type parser struct {
	tokens   []string
	ops      []op
	operands []Expr
}

func (p *parser) parse() (Expr, error) {
	expectOperand := true

	for i, tok := range p.tokens {
		if expectOperand {
			switch {
			case tok == "(":
				p.ops = append(p.ops, op{kind: opLParen, pos: i})
				continue

			case tok == ")":
				return nil, &SyntaxError{Pos: i, Token: tok, Msg: "expected a term"}

			case strings.EqualFold(tok, "not") && i+1 < len(p.tokens) && p.tokens[i+1] != ")":
				// unary and right-associative: nothing to reduce
				p.ops = append(p.ops, op{kind: opNot, pos: i})
				continue
			}

			term, err := parseTerm(tok, i)
			if err != nil {
				return nil, err
			}
			p.operands = append(p.operands, term)
			expectOperand = false
			continue
		}

		switch {
		case strings.EqualFold(tok, "and"), strings.EqualFold(tok, "or"):
			kind := opAnd
			if strings.EqualFold(tok, "or") {
				kind = opOr
			}
			for len(p.ops) > 0 {
				top := p.ops[len(p.ops)-1]
				if top.kind == opLParen || top.kind.precedence() < kind.precedence() {
					break
				}
				p.reduce()
			}
			p.ops = append(p.ops, op{kind: kind, pos: i})
			expectOperand = true

		case tok == ")":
			matched := false
			for len(p.ops) > 0 {
				if p.ops[len(p.ops)-1].kind == opLParen {
					p.ops = p.ops[:len(p.ops)-1]
					matched = true
					break
				}
				p.reduce()
			}
			if !matched {
				return nil, &SyntaxError{Pos: i, Token: tok, Msg: "unmatched closing parenthesis"}
			}

		default:
			return nil, &SyntaxError{Pos: i, Token: tok, Msg: "expected and, or or a closing parenthesis"}
		}
	}

	if expectOperand {
		return nil, &SyntaxError{Pos: len(p.tokens), Msg: "unexpected end of expression"}
	}

	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		if top.kind == opLParen {
			return nil, &SyntaxError{Pos: top.pos, Token: "(", Msg: "missing closing parenthesis"}
		}
		p.reduce()
	}

	if len(p.operands) != 1 {
		return nil, &SyntaxError{Pos: len(p.tokens), Msg: "malformed expression"}
	}
	return p.operands[0], nil
}

// reduce pops the top operator and applies it to the operand stack. The
// expectOperand state machine guarantees enough operands are present.
func (p *parser) reduce() {
	top := p.ops[len(p.ops)-1]
	p.ops = p.ops[:len(p.ops)-1]

	n := len(p.operands)
	if top.kind == opNot {
		p.operands[n-1] = notExpr{x: p.operands[n-1]}
		return
	}

	left, right := p.operands[n-2], p.operands[n-1]
	p.operands = append(p.operands[:n-2], binaryExpr{kind: top.kind, left: left, right: right})
}

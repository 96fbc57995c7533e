// Package condlogic 实现条件序号上的布尔表达式求值。
//
// 表达式语法（大小写不敏感，空白分隔）：
//
//	expr   := term (OR term)*
//	term   := factor (AND factor)*
//	factor := INT | '(' expr ')'
//
// 序号引用 results 切片的下标。表达式为空或非法时回退为全体条件取 OR，
// 并返回解析错误供调用方记录。存储的表达式绝不会被当作代码执行。
package condlogic

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Eval 对 results 求值给定表达式。
// 表达式非法时返回 OR 回退值与非 nil 错误，调用方应记录错误但可采用回退值。
func Eval(logic string, results []bool) (bool, error) {
	logic = strings.TrimSpace(logic)
	if logic == "" {
		return anyTrue(results), nil
	}

	tokens, err := tokenize(logic)
	if err != nil {
		return anyTrue(results), err
	}

	p := &parser{tokens: tokens, results: results}
	value, err := p.parseExpr()
	if err != nil {
		return anyTrue(results), err
	}
	if p.pos < len(p.tokens) {
		return anyTrue(results), fmt.Errorf("表达式结尾存在多余内容: %q", p.tokens[p.pos].text)
	}
	return value, nil
}

func anyTrue(results []bool) bool {
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

type tokenKind int

const (
	tokenIndex tokenKind = iota
	tokenAnd
	tokenOr
	tokenLParen
	tokenRParen
)

type token struct {
	kind  tokenKind
	index int
	text  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(input) && unicode.IsDigit(rune(input[j])) {
				j++
			}
			n, err := strconv.Atoi(input[i:j])
			if err != nil {
				return nil, fmt.Errorf("非法序号 %q: %w", input[i:j], err)
			}
			tokens = append(tokens, token{kind: tokenIndex, index: n, text: input[i:j]})
			i = j
		case unicode.IsLetter(rune(c)):
			j := i
			for j < len(input) && unicode.IsLetter(rune(input[j])) {
				j++
			}
			word := input[i:j]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{kind: tokenAnd, text: word})
			case "OR":
				tokens = append(tokens, token{kind: tokenOr, text: word})
			default:
				return nil, fmt.Errorf("未知的关键字: %q", word)
			}
			i = j
		default:
			return nil, fmt.Errorf("非法字符: %q", string(c))
		}
	}
	return tokens, nil
}

type parser struct {
	tokens  []token
	pos     int
	results []bool
}

func (p *parser) parseExpr() (bool, error) {
	value, err := p.parseTerm()
	if err != nil {
		return false, err
	}
	for p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenOr {
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return false, err
		}
		// 布尔求值无需短路，且两侧都要消费 token
		value = value || right
	}
	return value, nil
}

func (p *parser) parseTerm() (bool, error) {
	value, err := p.parseFactor()
	if err != nil {
		return false, err
	}
	for p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenAnd {
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return false, err
		}
		value = value && right
	}
	return value, nil
}

func (p *parser) parseFactor() (bool, error) {
	if p.pos >= len(p.tokens) {
		return false, fmt.Errorf("表达式意外结束")
	}
	tok := p.tokens[p.pos]
	switch tok.kind {
	case tokenIndex:
		p.pos++
		if tok.index < 0 || tok.index >= len(p.results) {
			return false, fmt.Errorf("序号 %d 越界（共 %d 个条件）", tok.index, len(p.results))
		}
		return p.results[tok.index], nil
	case tokenLParen:
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return false, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokenRParen {
			return false, fmt.Errorf("缺少右括号")
		}
		p.pos++
		return value, nil
	default:
		return false, fmt.Errorf("此处不应出现 %q", tok.text)
	}
}

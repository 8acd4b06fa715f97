// Package calc は四則演算の式を評価する電卓を提供する。
// 式は再帰下降パーサで解析し、任意のコードを実行することはない。
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// 評価エラー
var (
	ErrSyntax         = errors.New("式の構文が不正です")
	ErrDivisionByZero = errors.New("0で割ることはできません")
	ErrNotFinite      = errors.New("計算結果が有限の数値ではありません")
)

// Evaluate は式を評価して結果を返す。
//
// 文法:
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/") unary }
//	unary  = { "+" | "-" } number
//	number = digit { digit } [ "." { digit } ] | "." digit { digit }
//
// 空白は無視する。
func Evaluate(expr string) (float64, error) {
	p := &parser{src: expr}
	p.skipSpace()
	if p.done() {
		return 0, fmt.Errorf("%w: 式が空です", ErrSyntax)
	}

	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if !p.done() {
		return 0, fmt.Errorf("%w: 位置%dの文字 %q を解釈できません", ErrSyntax, p.pos, p.src[p.pos])
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrNotFinite
	}
	return v, nil
}

// FormatResult は評価結果を表示用の文字列に変換する。
func FormatResult(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.done() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		p.skipSpace()
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		p.skipSpace()
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		left /= right
	}
}

func (p *parser) unary() (float64, error) {
	sign := 1.0
	for {
		switch p.peek() {
		case '-':
			sign = -sign
		case '+':
		default:
			v, err := p.number()
			return sign * v, err
		}
		p.pos++
		p.skipSpace()
	}
}

func (p *parser) number() (float64, error) {
	start := p.pos
	digits, dot := 0, false
scan:
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			break scan
		}
		p.pos++
	}
	if digits == 0 {
		if p.done() {
			return 0, fmt.Errorf("%w: 式が途中で終わっています", ErrSyntax)
		}
		return 0, fmt.Errorf("%w: 位置%dに数値が必要です", ErrSyntax, start)
	}

	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrNotFinite
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	p.skipSpace()
	return v, nil
}

// Package reader turns source text into datum trees following standard
// Scheme lexical syntax: identifiers, #t/#f, #\ characters, strings with
// escapes, numbers in radixes 2/8/10/16 (all folded to float64),
// proper and improper lists, #(...) vectors, and the quote-family
// abbreviation prefixes.
package reader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/sadderchris/cheshire/pkg/datum"
)

// ErrIncomplete is wrapped by errors reported when the input ends in the
// middle of a datum. Interactive drivers use it to prompt for more input.
var ErrIncomplete = errors.New("incomplete input")

// SyntaxError is a read error with a source position.
type SyntaxError struct {
	Msg  string
	Line int
	Col  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("read error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Reader reads datums from a rune stream.
type Reader struct {
	rs   io.RuneScanner
	line int
	col  int
	// position of the previously read rune, for UnreadRune bookkeeping
	prevCol int
}

// New creates a Reader over an arbitrary rune stream.
func New(rs io.RuneScanner) *Reader {
	return &Reader{rs: rs, line: 1, col: 0}
}

// NewString creates a Reader over a string.
func NewString(s string) *Reader {
	return New(strings.NewReader(s))
}

// NewBuffered creates a Reader over an io.Reader, buffering as needed.
func NewBuffered(r io.Reader) *Reader {
	return New(bufio.NewReader(r))
}

// Read returns the next datum from the stream. It returns io.EOF when the
// stream is exhausted before any datum begins, and an error wrapping
// ErrIncomplete when the stream ends mid-datum.
func (r *Reader) Read() (datum.Datum, error) {
	if err := r.skipAtmosphere(); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return r.readDatum()
}

// ReadAll reads datums until EOF.
func (r *Reader) ReadAll() ([]datum.Datum, error) {
	var out []datum.Datum
	for {
		d, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
}

func (r *Reader) readRune() (rune, error) {
	c, _, err := r.rs.ReadRune()
	if err != nil {
		return 0, err
	}
	if c == '\n' {
		r.line++
		r.prevCol = r.col
		r.col = 0
	} else {
		r.prevCol = r.col
		r.col++
	}
	return c, nil
}

func (r *Reader) unreadRune(c rune) {
	_ = r.rs.UnreadRune()
	if c == '\n' {
		r.line--
	}
	r.col = r.prevCol
}

func (r *Reader) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Line: r.line, Col: r.col}
}

func (r *Reader) incomplete(what string) error {
	return &SyntaxError{
		Msg:  fmt.Sprintf("%s: %v", what, ErrIncomplete),
		Line: r.line,
		Col:  r.col,
	}
}

// IsIncomplete reports whether err indicates input that ended mid-datum.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	if errors.As(err, &se) {
		return strings.Contains(se.Msg, ErrIncomplete.Error())
	}
	return false
}

// skipAtmosphere skips whitespace and ; comments.
func (r *Reader) skipAtmosphere() error {
	for {
		c, err := r.readRune()
		if err != nil {
			return err
		}
		if unicode.IsSpace(c) {
			continue
		}
		if c == ';' {
			for {
				c, err = r.readRune()
				if err != nil {
					return err
				}
				if c == '\n' {
					break
				}
			}
			continue
		}
		r.unreadRune(c)
		return nil
	}
}

func (r *Reader) readDatum() (datum.Datum, error) {
	c, err := r.readRune()
	if err != nil {
		if err == io.EOF {
			return nil, r.incomplete("unexpected end of input")
		}
		return nil, err
	}

	switch c {
	case '(':
		return r.readList(')')
	case '[':
		return r.readList(']')
	case ')', ']':
		return nil, r.errorf("unexpected %q", c)
	case '"':
		return r.readString()
	case '#':
		return r.readHash()
	case '\'':
		return r.readAbbrev(datum.AbbrevQuote)
	case '`':
		return r.readAbbrev(datum.AbbrevQuasiquote)
	case ',':
		next, err := r.readRune()
		if err == nil && next == '@' {
			return r.readAbbrev(datum.AbbrevUnquoteSplicing)
		}
		if err == nil {
			r.unreadRune(next)
		}
		return r.readAbbrev(datum.AbbrevUnquote)
	default:
		r.unreadRune(c)
		return r.readAtom()
	}
}

func (r *Reader) readAbbrev(kind datum.AbbrevKind) (datum.Datum, error) {
	if err := r.skipAtmosphere(); err != nil {
		if err == io.EOF {
			return nil, r.incomplete("datum expected after " + kind.String() + " prefix")
		}
		return nil, err
	}
	inner, err := r.readDatum()
	if err != nil {
		return nil, err
	}
	return &datum.Abbrev{Kind: kind, Inner: inner}, nil
}

func (r *Reader) readList(close rune) (datum.Datum, error) {
	var elems []datum.Datum
	for {
		if err := r.skipAtmosphere(); err != nil {
			if err == io.EOF {
				return nil, r.incomplete("unterminated list")
			}
			return nil, err
		}
		c, err := r.readRune()
		if err != nil {
			return nil, r.incomplete("unterminated list")
		}
		if c == close {
			return datum.List(elems...), nil
		}
		if c == '.' {
			// A lone dot introduces the tail of an improper list; a dot
			// followed by more characters begins an atom. Only one rune
			// of lookahead exists, so the atom case re-reads the token
			// and prepends the consumed dot.
			next, nerr := r.readRune()
			if nerr != nil || unicode.IsSpace(next) || next == '(' || next == ')' {
				if nerr == nil {
					r.unreadRune(next)
				}
				if len(elems) == 0 {
					return nil, r.errorf("dotted pair without car")
				}
				if err := r.skipAtmosphere(); err != nil {
					return nil, r.incomplete("unterminated dotted pair")
				}
				tail, err := r.readDatum()
				if err != nil {
					return nil, err
				}
				if err := r.skipAtmosphere(); err != nil {
					return nil, r.incomplete("unterminated dotted pair")
				}
				c, err = r.readRune()
				if err != nil {
					return nil, r.incomplete("unterminated dotted pair")
				}
				if c != close {
					return nil, r.errorf("expected %q after dotted pair tail, got %q", close, c)
				}
				return datum.ImproperList(elems, tail), nil
			}
			r.unreadRune(next)
			tok, err := r.readToken()
			if err != nil {
				return nil, err
			}
			tok = "." + tok
			if n, ok := parseNumber(tok); ok {
				elems = append(elems, datum.Number(n))
			} else {
				elems = append(elems, datum.Symbol(tok))
			}
			continue
		}
		r.unreadRune(c)
		d, err := r.readDatum()
		if err != nil {
			return nil, err
		}
		elems = append(elems, d)
	}
}

func (r *Reader) readString() (datum.Datum, error) {
	var sb strings.Builder
	for {
		c, err := r.readRune()
		if err != nil {
			return nil, r.incomplete("unterminated string")
		}
		switch c {
		case '"':
			return datum.String(sb.String()), nil
		case '\\':
			esc, err := r.readRune()
			if err != nil {
				return nil, r.incomplete("unterminated string escape")
			}
			switch esc {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				return nil, r.errorf("unknown string escape \\%c", esc)
			}
		default:
			sb.WriteRune(c)
		}
	}
}

// readHash handles #t, #f, #\..., #(...) and #b/#o/#d/#x radix numbers.
func (r *Reader) readHash() (datum.Datum, error) {
	c, err := r.readRune()
	if err != nil {
		return nil, r.incomplete("unterminated # syntax")
	}
	switch c {
	case 't', 'T':
		return datum.Bool(true), nil
	case 'f', 'F':
		return datum.Bool(false), nil
	case '(':
		lst, err := r.readList(')')
		if err != nil {
			return nil, err
		}
		elems, _ := datum.Elems(lst)
		return &datum.Vector{Elems: elems}, nil
	case '\\':
		return r.readChar()
	case 'b', 'B', 'o', 'O', 'd', 'D', 'x', 'X':
		tok, err := r.readToken()
		if err != nil {
			return nil, err
		}
		n, perr := parseRadix(c, tok)
		if perr != nil {
			return nil, r.errorf("bad number #%c%s", c, tok)
		}
		return datum.Number(n), nil
	default:
		return nil, r.errorf("unknown # syntax: #%c", c)
	}
}

var charNames = map[string]rune{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
	"return":  '\r',
	"nul":     0,
}

func (r *Reader) readChar() (datum.Datum, error) {
	c, err := r.readRune()
	if err != nil {
		return nil, r.incomplete("unterminated character literal")
	}
	// A letter may begin a named character; anything else stands alone.
	if !unicode.IsLetter(c) {
		return datum.Char(c), nil
	}
	name := []rune{c}
	for {
		c, err = r.readRune()
		if err != nil {
			break
		}
		if !unicode.IsLetter(c) {
			r.unreadRune(c)
			break
		}
		name = append(name, c)
	}
	if len(name) == 1 {
		return datum.Char(name[0]), nil
	}
	if ch, ok := charNames[strings.ToLower(string(name))]; ok {
		return datum.Char(ch), nil
	}
	return nil, r.errorf("unknown character name #\\%s", string(name))
}

// readToken consumes a run of non-delimiter characters.
func (r *Reader) readToken() (string, error) {
	var sb strings.Builder
	for {
		c, err := r.readRune()
		if err != nil {
			break
		}
		if unicode.IsSpace(c) || c == '(' || c == ')' || c == '[' || c == ']' ||
			c == '"' || c == ';' {
			r.unreadRune(c)
			break
		}
		sb.WriteRune(c)
	}
	if sb.Len() == 0 {
		return "", r.incomplete("token expected")
	}
	return sb.String(), nil
}

func (r *Reader) readAtom() (datum.Datum, error) {
	tok, err := r.readToken()
	if err != nil {
		return nil, err
	}
	if n, ok := parseNumber(tok); ok {
		return datum.Number(n), nil
	}
	return datum.Symbol(tok), nil
}

// parseNumber attempts to read tok as a decimal number. A bare sign or
// dot is an identifier, not a number.
func parseNumber(tok string) (float64, bool) {
	if tok == "+" || tok == "-" || tok == "." || tok == "..." {
		return 0, false
	}
	first := tok[0]
	if first != '+' && first != '-' && first != '.' && (first < '0' || first > '9') {
		return 0, false
	}
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseRadix(marker rune, tok string) (float64, error) {
	var base int
	switch marker {
	case 'b', 'B':
		base = 2
	case 'o', 'O':
		base = 8
	case 'd', 'D':
		base = 10
	case 'x', 'X':
		base = 16
	}
	neg := false
	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	} else {
		tok = strings.TrimPrefix(tok, "+")
	}
	n, err := strconv.ParseInt(tok, base, 64)
	if err != nil {
		return 0, err
	}
	f := float64(n)
	if neg {
		f = -f
	}
	return f, nil
}

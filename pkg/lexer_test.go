package hydrogen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daetalus/hydrogen/internal/hytest"
)

// lexAll drains a lexer over src, returning every token up to and including
// EOF, or the error that stopped it.
func lexAll(src string) ([]Token, *Error) {
	s := NewState(Options{})
	idx := s.addSource("", src)
	l := NewLexer(s, idx)

	var toks []Token
	for {
		if !l.Next() {
			return toks, l.Err()
		}
		tok := l.Token()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks, nil
		}
	}
}

func TestLexer(t *testing.T) {
	cases := []struct {
		data   string
		fail   bool
		expect []TokenType
	}{
		{
			"+ - *\t \t  \n/ %",
			false,
			[]TokenType{TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenEOF},
		},
		{
			"let x = 1",
			false,
			[]TokenType{TokenLet, TokenIdentifier, TokenAssign, TokenInteger, TokenEOF},
		},
		{
			"fn (Point) sum() { return self.x }",
			false,
			[]TokenType{
				TokenFn, TokenOpenParen, TokenIdentifier, TokenCloseParen,
				TokenIdentifier, TokenOpenParen, TokenCloseParen, TokenOpenBrace,
				TokenReturn, TokenSelf, TokenDot, TokenIdentifier, TokenCloseBrace,
				TokenEOF,
			},
		},
		{
			"a == b != c <= d >= e && f || !g",
			false,
			[]TokenType{
				TokenIdentifier, TokenEq, TokenIdentifier, TokenNeq,
				TokenIdentifier, TokenLe, TokenIdentifier, TokenGe,
				TokenIdentifier, TokenAnd, TokenIdentifier, TokenOr,
				TokenBang, TokenIdentifier, TokenEOF,
			},
		},
		{
			"a .. b << 2 >> 1 & | ^ ~",
			false,
			[]TokenType{
				TokenIdentifier, TokenConcat, TokenIdentifier, TokenShl,
				TokenInteger, TokenShr, TokenInteger, TokenAmp, TokenPipe,
				TokenCaret, TokenTilde, TokenEOF,
			},
		},
		{
			"x += 1 y -= 2 z *= 3 w /= 4",
			false,
			[]TokenType{
				TokenIdentifier, TokenPlusEq, TokenInteger,
				TokenIdentifier, TokenMinusEq, TokenInteger,
				TokenIdentifier, TokenStarEq, TokenInteger,
				TokenIdentifier, TokenSlashEq, TokenInteger, TokenEOF,
			},
		},
		{
			"// just a comment\n42",
			false,
			[]TokenType{TokenInteger, TokenEOF},
		},
		{
			"/* a /* b */ c */ 1",
			false,
			[]TokenType{TokenInteger, TokenEOF},
		},
		{
			"else  if",
			false,
			[]TokenType{TokenElseIf, TokenEOF},
		},
		{
			"else x",
			false,
			[]TokenType{TokenElse, TokenIdentifier, TokenEOF},
		},
		{
			"elsewhere",
			false,
			[]TokenType{TokenIdentifier, TokenEOF},
		},
		{
			"'unterminated",
			true,
			nil,
		},
		{
			"/* never closed",
			true,
			nil,
		},
		{
			"0q1",
			true,
			nil,
		},
		{
			"12abc",
			true,
			nil,
		},
		{
			"'bad \\z escape'",
			true,
			nil,
		},
		{
			"@",
			true,
			nil,
		},
	}

	for _, c := range cases {
		toks, err := lexAll(c.data)
		if c.fail {
			assert.NotNil(t, err, "expected a lex error for %q", c.data)
			continue
		}
		require.Nil(t, err, "unexpected lex error for %q: %v", c.data, err)

		var types []TokenType
		for _, tok := range toks {
			types = append(types, tok.Type)
		}
		assert.Equal(t, c.expect, types, "token stream mismatch for %q", c.data)
	}
}

func TestLexerNumbers(t *testing.T) {
	toks, err := lexAll("0xff 0b101 0o17 42 3.14")
	require.Nil(t, err)
	require.Len(t, toks, 6)

	assert.Equal(t, TokenInteger, toks[0].Type)
	assert.Equal(t, int16(255), toks[0].Int)
	assert.Equal(t, TokenInteger, toks[1].Type)
	assert.Equal(t, int16(5), toks[1].Int)
	assert.Equal(t, TokenInteger, toks[2].Type)
	assert.Equal(t, int16(15), toks[2].Int)
	assert.Equal(t, TokenInteger, toks[3].Type)
	assert.Equal(t, int16(42), toks[3].Int)
	assert.Equal(t, TokenNumber, toks[4].Type)
	assert.Equal(t, 3.14, toks[4].Number)
}

func TestLexerIntegerPromotion(t *testing.T) {
	// Values past the 16-bit immediate range become number tokens.
	toks, err := lexAll("32767 32768 1e5")
	require.Nil(t, err)

	assert.Equal(t, TokenInteger, toks[0].Type)
	assert.Equal(t, int16(32767), toks[0].Int)
	assert.Equal(t, TokenNumber, toks[1].Type)
	assert.Equal(t, 32768.0, toks[1].Number)
	assert.Equal(t, TokenNumber, toks[2].Type)
	assert.Equal(t, 100000.0, toks[2].Number)
}

func TestLexerStrings(t *testing.T) {
	cases := []struct {
		data   string
		expect string
	}{
		{`'hello\n\t\"world'`, "hello\n\t\"world"},
		{`"double quoted"`, "double quoted"},
		{`'\x41\x42'`, "AB"},
		{`''`, ""},
		{`'mixed "quotes" inside'`, `mixed "quotes" inside`},
	}

	for _, c := range cases {
		toks, err := lexAll(c.data)
		require.Nil(t, err, "unexpected lex error for %q", c.data)
		require.Equal(t, TokenString, toks[0].Type)
		assert.Equal(t, c.expect, ExtractString(toks[0]), "decoded contents mismatch for %q", c.data)
	}
}

func TestLexerLineTracking(t *testing.T) {
	toks, err := lexAll("a\nb\r\nc")
	require.Nil(t, err)

	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 3, toks[2].Line)
}

func TestLexerErrorLocation(t *testing.T) {
	_, err := lexAll("let x = 'open")
	require.NotNil(t, err)
	assert.Contains(t, err.Description, "Unterminated string literal")
	assert.Equal(t, 1, err.Line)
	assert.Equal(t, 9, err.Column)
}

func TestLexerRandomCorpus(t *testing.T) {
	for i := 0; i < 32; i++ {
		data := hytest.GetRandomTokens(256)
		_, err := lexAll(data)
		require.Nil(t, err, "corpus input failed to lex: %v", err)
	}
}

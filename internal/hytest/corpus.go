package hytest

import (
	"math/rand"
	"strings"
)

const validTokens = "let;fn;if;while;loop;break;return;struct;new;self;true;false;nil;identifier;another_name;x;(;);{;};[;];,;.;+;-;*;/;%;..;==;!=;<;<=;>;>=;&&;||;!;=;123;0;42;3.14;0xff;0b101;0o17;'a string';'a longer string with some text in it: Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua';\"double quoted\";'';//comment\n;\n"

func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}

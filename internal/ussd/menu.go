package ussd

import (
	"context"

	"github.com/kudifi/kudifi/internal/account"
	"github.com/kudifi/kudifi/internal/phone"
)

// matcher accepts or rejects a single token at its position in the sequence.
type matcher func(tok string) bool

// node ties a required token shape to its handler. A node only matches when
// the full token sequence has exactly the shape's length and every position
// passes its matcher, so a confirmed 6-token transfer can never be shadowed by
// the 2-token menu selection it extends.
type node struct {
	shape  []matcher
	handle func(ctx context.Context, acct account.Account, toks []string) string
}

func lit(want string) matcher {
	return func(tok string) bool { return tok == want }
}

func tokenChoice(tok string) bool {
	return tok == "1" || tok == "2" || tok == "3"
}

func confirmChoice(tok string) bool {
	return tok == "1" || tok == "2"
}

func phoneTok(tok string) bool {
	return phone.IsLocalFormat(tok)
}

func amountTok(tok string) bool {
	if tok == "" || tok == "." {
		return false
	}
	dots := 0
	for _, r := range tok {
		if r == '.' {
			dots++
			if dots > 1 {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return tok[0] != '.' && tok[len(tok)-1] != '.'
}

func pinTok(tok string) bool {
	if len(tok) != 4 {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// match finds the first node whose shape matches the token sequence exactly.
// Nodes are checked in declaration order, longer shapes first.
func match(nodes []node, toks []string) (node, bool) {
	for _, n := range nodes {
		if len(n.shape) != len(toks) {
			continue
		}
		ok := true
		for i, m := range n.shape {
			if !m(toks[i]) {
				ok = false
				break
			}
		}
		if ok {
			return n, true
		}
	}
	return node{}, false
}

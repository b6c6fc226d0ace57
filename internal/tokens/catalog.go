package tokens

import (
	"fmt"
	"math/big"
	"strings"
)

// NativeTokenAddress marks a token settled as the chain's native currency
// rather than through an ERC-20 contract.
const NativeTokenAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// Token describes one supported asset. Decimals are fixed for the process
// lifetime; the catalog below is the only place they are declared.
type Token struct {
	Name     string
	Symbol   string
	Address  string
	Decimals int
}

// Native reports whether transfers of this token move the chain's base asset.
func (t Token) Native() bool {
	return t.Address == NativeTokenAddress
}

var supported = []Token{
	{Name: "ApeCoin", Symbol: "APE", Address: NativeTokenAddress, Decimals: 18},
	{Name: "Tether USD", Symbol: "USDT", Address: "0xb56415964d3F47fd3390484676e4f394d198374a", Decimals: 6},
	{Name: "USD Coin", Symbol: "USDC", Address: "0xE0356B8aD7811dC3e4d61cFD6ac7653e0D31b096", Decimals: 6},
}

// All returns the supported tokens in menu order.
func All() []Token {
	out := make([]Token, len(supported))
	copy(out, supported)
	return out
}

// BySymbol resolves a token by its symbol.
func BySymbol(symbol string) (Token, bool) {
	for _, t := range supported {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}

// ByMenuChoice resolves a token from its 1-based menu position.
func ByMenuChoice(choice string) (Token, bool) {
	switch choice {
	case "1":
		return supported[0], true
	case "2":
		return supported[1], true
	case "3":
		return supported[2], true
	}
	return Token{}, false
}

// MenuLines renders the numbered token list shown on selection screens.
func MenuLines() string {
	lines := make([]string, len(supported))
	for i, t := range supported {
		lines[i] = fmt.Sprintf("%d. %s", i+1, t.Symbol)
	}
	return strings.Join(lines, "\n")
}

// ToBaseUnits converts a decimal amount string into the token's smallest unit.
// The conversion is exact: fractional digits beyond the token's precision are
// rejected rather than rounded, since the result feeds an on-chain transfer.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q exceeds %d decimal places", amount, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	units, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	return units, nil
}

// FormatUnits renders a base-unit quantity as a decimal string, trimming
// trailing fractional zeros.
func FormatUnits(units *big.Int, decimals int) string {
	s := units.String()
	if decimals == 0 {
		return s
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], s[len(s)-decimals:]
	frac = strings.TrimRight(frac, "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

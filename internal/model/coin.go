package model

import "strings"

// coinSymbols maps dashboard coin ids to Binance spot symbols.
var coinSymbols = map[string]string{
	"bitcoin":  "BTCUSDT",
	"ethereum": "ETHUSDT",
	"solana":   "SOLUSDT",
	"pepe":     "PEPEUSDT",
	"ripple":   "XRPUSDT",
	"dogecoin": "DOGEUSDT",
	"cardano":  "ADAUSDT",
	"polkadot": "DOTUSDT",
}

// SymbolFor resolves a coin id to an exchange symbol. Known ids are looked
// up case-insensitively; an all upper-case id is taken as a symbol verbatim.
func SymbolFor(coin string) (string, bool) {
	coin = strings.TrimSpace(coin)
	if s, ok := coinSymbols[strings.ToLower(coin)]; ok {
		return s, true
	}
	if coin != "" && coin == strings.ToUpper(coin) && isAlnum(coin) {
		return coin, true
	}
	return "", false
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

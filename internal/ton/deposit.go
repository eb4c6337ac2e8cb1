// Package ton turns incoming TON transfers to the hot wallet into ledger
// deposits. A deposit names its ledger account in the transfer comment as
// "acct:<id>"; amounts are credited in nanoTON.
package ton

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/xssnick/tonutils-go/tlb"
)

const MemoPrefix = "acct:"

const maxAccountIDLen = 128

// ParseDepositMemo returns the account named by a deposit comment.
func ParseDepositMemo(comment string) (string, bool) {
	memo := strings.TrimSpace(comment)
	if !strings.HasPrefix(strings.ToLower(memo), MemoPrefix) {
		return "", false
	}
	id := strings.TrimSpace(memo[len(MemoPrefix):])
	if id == "" || len(id) > maxAccountIDLen || strings.ContainsAny(id, " \t\r\n") {
		return "", false
	}
	return id, true
}

// ExtractComment parses a text comment from an InternalMessage body.
// TON text comments have opcode 0x00000000 followed by UTF-8 text in snake
// format: text longer than one cell continues in the first reference.
func ExtractComment(inMsg *tlb.InternalMessage) string {
	body := inMsg.Body
	if body == nil {
		return ""
	}

	slice := body.BeginParse()
	if slice.BitsLeft() < 32 {
		return ""
	}

	op, err := slice.LoadUInt(32)
	if err != nil || op != 0 {
		return ""
	}

	text, err := slice.LoadStringSnake()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// ParseTONToNano converts a decimal TON string (e.g. "5.5") to nanoTON.
// 1 TON = 1_000_000_000 nanoTON; digits past the ninth decimal are dropped.
func ParseTONToNano(tonStr string) (*big.Int, error) {
	tonStr = strings.TrimSpace(tonStr)
	if tonStr == "" {
		return nil, fmt.Errorf("empty TON amount")
	}

	parts := strings.Split(tonStr, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid TON amount: %s", tonStr)
	}

	whole := parts[0]
	if whole == "" {
		whole = "0"
	}
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}

	if len(frac) > 9 {
		frac = frac[:9]
	}
	for len(frac) < 9 {
		frac += "0"
	}

	nano, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || nano.Sign() < 0 {
		return nil, fmt.Errorf("invalid TON amount: %s", tonStr)
	}
	return nano, nil
}

// NanoToAmount converts nanoTON to a ledger amount.
func NanoToAmount(nano *big.Int) (int64, error) {
	if nano == nil || nano.Sign() <= 0 {
		return 0, fmt.Errorf("non-positive amount")
	}
	if nano.Cmp(big.NewInt(math.MaxInt64)) > 0 {
		return 0, fmt.Errorf("amount %s overflows the ledger", nano.String())
	}
	return nano.Int64(), nil
}

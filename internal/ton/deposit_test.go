package ton

import (
	"math/big"
	"strings"
	"testing"

	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

func TestParseDepositMemo(t *testing.T) {
	tests := []struct {
		memo string
		want string
		ok   bool
	}{
		{"acct:alice", "alice", true},
		{"  ACCT:bob  ", "bob", true},
		{"acct: carol", "carol", true},
		{"acct:", "", false},
		{"acct:two words", "", false},
		{"deal:123", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.memo, func(t *testing.T) {
			got, ok := ParseDepositMemo(tt.memo)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseDepositMemo(%q) = %q, %v, want %q, %v", tt.memo, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtractComment(t *testing.T) {
	comment := cell.BeginCell().MustStoreUInt(0, 32).MustStoreStringSnake("acct:alice").EndCell()
	if got := ExtractComment(&tlb.InternalMessage{Body: comment}); got != "acct:alice" {
		t.Errorf("comment = %q, want acct:alice", got)
	}

	opcode := cell.BeginCell().MustStoreUInt(0x0f8a7ea5, 32).MustStoreUInt(1, 64).EndCell()
	if got := ExtractComment(&tlb.InternalMessage{Body: opcode}); got != "" {
		t.Errorf("non-comment body parsed as %q", got)
	}

	if got := ExtractComment(&tlb.InternalMessage{}); got != "" {
		t.Errorf("empty body parsed as %q", got)
	}
}

func TestExtractCommentFollowsSnakeRefs(t *testing.T) {
	id := strings.Repeat("a", maxAccountIDLen)
	memo := MemoPrefix + id
	body := cell.BeginCell().MustStoreUInt(0, 32).MustStoreStringSnake(memo).EndCell()
	if body.RefsNum() == 0 {
		t.Fatalf("memo of %d bytes should not fit in one cell", len(memo))
	}

	got := ExtractComment(&tlb.InternalMessage{Body: body})
	if got != memo {
		t.Fatalf("comment = %q (%d bytes), want %d bytes", got, len(got), len(memo))
	}
	if acct, ok := ParseDepositMemo(got); !ok || acct != id {
		t.Errorf("ParseDepositMemo = %q, %v, want the %d-byte id", acct, ok, len(id))
	}
}

func TestParseTONToNano(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "1000000000", false},
		{"5.5", "5500000000", false},
		{"0.000000001", "1", false},
		{".25", "250000000", false},
		{"1.1234567891", "1123456789", false},
		{"", "", true},
		{"1.2.3", "", true},
		{"abc", "", true},
		{"-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTONToNano(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNanoToAmount(t *testing.T) {
	if n, err := NanoToAmount(big.NewInt(42)); err != nil || n != 42 {
		t.Errorf("NanoToAmount(42) = %d, %v", n, err)
	}
	huge, _ := new(big.Int).SetString("99999999999999999999", 10)
	if _, err := NanoToAmount(huge); err == nil {
		t.Error("expected overflow error")
	}
	if _, err := NanoToAmount(big.NewInt(0)); err == nil {
		t.Error("expected error for zero")
	}
}

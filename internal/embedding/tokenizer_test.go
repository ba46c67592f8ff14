package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	enc, err := tok.Tokenize("hello world", 10)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Len() != 4 {
		t.Errorf("len(ids)=%d, want 4", enc.Len())
	}
	if enc.IDs[0] != clsTokenID {
		t.Errorf("expected CLS 101, got %d", enc.IDs[0])
	}
	if enc.IDs[3] != sepTokenID {
		t.Errorf("expected SEP 102, got %d", enc.IDs[3])
	}
	for i, m := range enc.AttentionMask {
		if m != 1 {
			t.Errorf("attention[%d] should be 1", i)
		}
	}
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	enc, _ := tok.Tokenize("a b c d e f g h", 5)
	if enc.Len() != 5 {
		t.Fatalf("len=%d, want 5", enc.Len())
	}
	if enc.IDs[4] != sepTokenID {
		t.Errorf("truncated sequence should end with SEP, got %d", enc.IDs[4])
	}
}

func TestSimpleTokenizer_empty(t *testing.T) {
	enc, _ := (&SimpleTokenizer{}).Tokenize("", 8)
	if enc.Len() != 2 || enc.IDs[0] != clsTokenID || enc.IDs[1] != sepTokenID {
		t.Errorf("empty text should give [CLS][SEP], got %v", enc.IDs)
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b  c  ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	if h == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}

func TestNewWordPieceTokenizer_missingFile(t *testing.T) {
	if _, err := NewWordPieceTokenizer("/nonexistent/tokenizer.json"); err == nil {
		t.Fatal("expected error for missing tokenizer file")
	}
}

package tokenizer

import (
	"reflect"
	"sync"
	"testing"
	"unicode/utf8"
)

func newTokenizer(t *testing.T, size int) *Tokenizer {
	t.Helper()
	tok, err := New(size)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tok
}

func TestTokenizeAppendsStemsAfterSurfaceForms(t *testing.T) {
	tok := newTokenizer(t, 16)
	got := tok.Tokenize("Running  CATS\tjump\n")
	want := []string{"running", "cats", "jump", "run", "cat", "jump"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeYieldsTwiceTheWords(t *testing.T) {
	tok := newTokenizer(t, 16)
	tests := []struct {
		text  string
		words int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"cat", 1},
		{"cat dog cat", 3},
		{"U.S.A. won't stop", 3},
	}
	for _, tt := range tests {
		if got := len(tok.Tokenize(tt.text)); got != 2*tt.words {
			t.Errorf("len(Tokenize(%q)) = %d, want %d", tt.text, got, 2*tt.words)
		}
	}
}

func TestTokenizeKeepsPunctuation(t *testing.T) {
	tok := newTokenizer(t, 16)
	got := tok.Tokenize("Hello, World!")
	if got[0] != "hello," || got[1] != "world!" {
		t.Errorf("surface forms must be whitespace-split only, got %v", got[:2])
	}
}

func TestStemCacheIsBoundedAndCounted(t *testing.T) {
	tok := newTokenizer(t, 2)
	tok.Tokenize("cat dog cat")
	hits, misses, size := tok.CacheStats()
	if hits != 1 || misses != 2 || size != 2 {
		t.Errorf("stats = (%d, %d, %d), want (1, 2, 2)", hits, misses, size)
	}
	tok.Tokenize("bird fish")
	if _, _, size := tok.CacheStats(); size != 2 {
		t.Errorf("cache grew past capacity: %d", size)
	}
}

func TestTokenizeIsDeterministicUnderConcurrency(t *testing.T) {
	tok := newTokenizer(t, 8)
	want := tok.Tokenize("connected connections connecting")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := tok.Tokenize("connected connections connecting"); !reflect.DeepEqual(got, want) {
				t.Errorf("concurrent Tokenize() = %v, want %v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestTokenizeReplacesInvalidUTF8(t *testing.T) {
	tok := newTokenizer(t, 16)
	got := tok.Tokenize("caf\xe9 CAF\xe8\xe8 bar")
	want := []string{"caf\uFFFD", "caf\uFFFD", "bar"}
	if len(got) != 6 || !reflect.DeepEqual(got[:3], want) {
		t.Errorf("Tokenize() = %q, want %q", got, want)
	}
	for _, term := range got {
		if !utf8.ValidString(term) {
			t.Errorf("term %q is not valid UTF-8", term)
		}
	}
}

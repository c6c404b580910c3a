package docproc

import "testing"

func TestExtractTextPlainUTF8(t *testing.T) {
	got, err := extractText([]byte("hello world"))
	if err != nil {
		t.Fatalf("extractText returned error: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}

func TestExtractTextUTF8WithMultibyteRunes(t *testing.T) {
	input := "郑和下西洋"
	got, err := extractText([]byte(input))
	if err != nil {
		t.Fatalf("extractText returned error: %v", err)
	}
	if got != input {
		t.Fatalf("got %q, want %q", got, input)
	}
}

func TestExtractTextLatin1Fallback(t *testing.T) {
	// 0xE9 is 'é' in both Latin-1 and cp1252; not valid standalone UTF-8.
	input := []byte{'c', 'a', 'f', 0xE9}
	got, err := extractText(input)
	if err != nil {
		t.Fatalf("extractText returned error: %v", err)
	}
	if got != "café" {
		t.Fatalf("got %q, want %q", got, "café")
	}
}

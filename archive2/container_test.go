package archive2

import "testing"

func buildBzip2Magic(blockSizeDigit byte) []byte {
	return append([]byte{'B', 'Z', 'h', blockSizeDigit}, []byte("1AY&SY")...)
}

func TestFindBzip2StreamStarts(t *testing.T) {
	var buf []byte
	buf = append(buf, make([]byte, 20)...) // junk prefix
	firstStart := len(buf)
	buf = append(buf, buildBzip2Magic('9')...)
	buf = append(buf, make([]byte, 2000)...) // plenty of gap
	secondStart := len(buf)
	buf = append(buf, buildBzip2Magic('9')...)
	buf = append(buf, make([]byte, 50)...)

	starts := findBzip2StreamStarts(buf)
	if len(starts) != 2 {
		t.Fatalf("expected 2 stream starts, got %d: %v", len(starts), starts)
	}
	if starts[0] != firstStart || starts[1] != secondStart {
		t.Fatalf("starts = %v, want [%d %d]", starts, firstStart, secondStart)
	}
}

func TestFindBzip2StreamStartsDiscardsShortGap(t *testing.T) {
	var buf []byte
	buf = append(buf, buildBzip2Magic('9')...)
	buf = append(buf, make([]byte, 10)...) // gap well under minBzip2StreamGap
	buf = append(buf, buildBzip2Magic('9')...)
	buf = append(buf, make([]byte, 50)...)

	starts := findBzip2StreamStarts(buf)
	if len(starts) != 1 {
		t.Fatalf("expected the first start, followed by an undersized gap, to be discarded, got %v", starts)
	}
}

func TestFindBzip2StreamStartsIgnoresPartialMagic(t *testing.T) {
	buf := []byte("BZhnotreallyacompressedstream0123456789")
	if starts := findBzip2StreamStarts(buf); len(starts) != 0 {
		t.Fatalf("expected no matches for a BZh prefix without the AY&SY magic, got %v", starts)
	}
}

package docproc

import "strings"

const (
	defaultMaxChunkChars = 1000
	minMaxChunkChars     = 500
	maxMaxChunkChars     = 3000

	defaultOverlapPercent = 20
	minOverlapPercent     = 0
	maxOverlapPercent     = 50

	breakSearchWindow = 50
)

// breakChars are the characters chunkText prefers to end a chunk on,
// searched backward from the naive cut point.
const breakChars = "。！？；.!?;\n "

// overlapChars are the characters chunkText prefers to start the next
// chunk's overlap on, searched forward from the naive overlap point.
const overlapChars = " \n。！？；.!?;"

// TextChunk is one contiguous slice of a document's text, with the
// character offsets it occupies in the original extracted text.
type TextChunk struct {
	Text       string
	StartChar  int
	EndChar    int
	Index      int
	TotalCount int
}

// clampInt restricts v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chunkText splits text into overlapping chunks of at most
// maxChunkChars runes, preferring to break on sentence/clause
// boundaries within breakSearchWindow runes of the naive cut point,
// and to start the next chunk's overlap on a similar boundary within
// breakSearchWindow runes of the naive overlap point. maxChunkChars is
// clamped to [minMaxChunkChars, maxMaxChunkChars] and overlapPercent
// to [minOverlapPercent, maxOverlapPercent].
func chunkText(text string, maxChunkChars, overlapPercent int) []TextChunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	maxChunkChars = clampInt(maxChunkChars, minMaxChunkChars, maxMaxChunkChars)
	overlapPercent = clampInt(overlapPercent, minOverlapPercent, maxOverlapPercent)
	overlapChars := maxChunkChars * overlapPercent / 100

	if n <= maxChunkChars {
		return []TextChunk{{
			Text:       text,
			StartChar:  0,
			EndChar:    n,
			Index:      0,
			TotalCount: 1,
		}}
	}

	var chunks []TextChunk
	start := 0
	for start < n {
		end := start + maxChunkChars
		if end >= n {
			end = n
		} else {
			end = findBreakPoint(runes, start, end)
		}

		chunks = append(chunks, TextChunk{
			Text:      string(runes[start:end]),
			StartChar: start,
			EndChar:   end,
		})

		if end >= n {
			break
		}

		nextStart := end - overlapChars
		if nextStart < start {
			nextStart = end
		}
		nextStart = findOverlapStart(runes, nextStart, end)

		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].TotalCount = len(chunks)
	}
	return chunks
}

// findBreakPoint searches backward from naiveEnd, up to
// breakSearchWindow runes, for the last occurrence of a break
// character, and returns the offset just after it. If none is found,
// naiveEnd is returned unchanged.
func findBreakPoint(runes []rune, start, naiveEnd int) int {
	limit := naiveEnd - breakSearchWindow
	if limit < start {
		limit = start
	}
	for i := naiveEnd - 1; i >= limit; i-- {
		if strings.ContainsRune(breakChars, runes[i]) {
			return i + 1
		}
	}
	return naiveEnd
}

// findOverlapStart searches forward from naiveStart, up to
// breakSearchWindow runes (never past chunkEnd), for the first
// occurrence of an overlap character, returning the offset just after
// it. If none is found, naiveStart is returned unchanged.
func findOverlapStart(runes []rune, naiveStart, chunkEnd int) int {
	limit := naiveStart + breakSearchWindow
	if limit > chunkEnd {
		limit = chunkEnd
	}
	for i := naiveStart; i < limit; i++ {
		if strings.ContainsRune(overlapChars, runes[i]) {
			return i + 1
		}
	}
	return naiveStart
}

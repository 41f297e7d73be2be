package rag

import "strings"

const (
	// DefaultChunkWords keeps short spoken transcripts as a single passage.
	DefaultChunkWords = 400

	// DefaultOverlapWords carries trailing context into the next chunk so
	// retrieval does not lose sentences cut at a boundary.
	DefaultOverlapWords = 50
)

// SplitTranscript splits a transcript into overlapping word-window chunks,
// each suitable for indexing under the same story partition. Transcripts at
// or below chunkWords come back as a single chunk.
func SplitTranscript(transcript string, chunkWords, overlapWords int) []string {
	words := strings.Fields(transcript)
	if len(words) == 0 {
		return nil
	}

	if chunkWords <= 0 {
		chunkWords = DefaultChunkWords
	}
	if overlapWords < 0 || overlapWords >= chunkWords {
		overlapWords = 0
	}

	if len(words) <= chunkWords {
		return []string{strings.Join(words, " ")}
	}

	step := chunkWords - overlapWords
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}

	return chunks
}

// Package textutil provides text processing helpers for the QA pipeline.
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strings"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or empty vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeCosineSimilarity maps a cosine similarity into [0, 1].
func NormalizeCosineSimilarity(similarity float64) float64 {
	return (similarity + 1) / 2
}

// HashString returns the hex-encoded MD5 digest of s. Used for stable
// document IDs derived from source identifiers.
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString cuts s down to maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// SplitIntoChunks splits text into overlapping chunks of at most chunkSize
// runes. When a sentence boundary falls in the back half of a window, the
// chunk ends there instead of cutting mid-sentence. overlap is clamped to
// [0, chunkSize).
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - overlap

	for start := 0; start < len(runes); {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := end
		for j := end - 1; j > start+chunkSize/2; j-- {
			if sentenceEnders[runes[j]] {
				cut = j + 1
				break
			}
		}
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - overlap
		if next <= start {
			next = start + step
		}
		start = next
	}

	return chunks
}

// sentenceEnders are the rune classes that terminate a Korean sentence.
var sentenceEnders = map[rune]bool{
	'.': true,
	'!': true,
	'?': true,
	'。': true,
}

// SplitSentences splits text into sentences on Korean/Latin terminal
// punctuation. Whitespace-only segments are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder

	for _, r := range text {
		sb.WriteRune(r)
		if sentenceEnders[r] {
			if s := strings.TrimSpace(sb.String()); s != "" {
				sentences = append(sentences, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// FirstSentence returns the first sentence of text, or text itself when no
// sentence boundary is found.
func FirstSentence(text string) string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	return sentences[0]
}

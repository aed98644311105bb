// Package korquad parses the KorQuAD v1.0 dataset and prepares its
// passages for indexing.
package korquad

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/hanq-io/hanq/internal/pkg/textutil"
)

// Dataset mirrors the KorQuAD v1.0 JSON layout.
type Dataset struct {
	Version string    `json:"version"`
	Data    []Article `json:"data"`
}

// Article is a Wikipedia article with its paragraphs.
type Article struct {
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph holds one passage and the questions annotated on it.
type Paragraph struct {
	Context string `json:"context"`
	QAs     []QA   `json:"qas"`
}

// QA is a question annotated on a paragraph.
type QA struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answers  []Answer `json:"answers"`
}

// Answer is a reference answer span.
type Answer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// Document is a deduplicated passage extracted from the dataset.
type Document struct {
	// ID is the original KorQuAD paragraph ID (the first annotated
	// question ID), used as the citation identifier in responses.
	ID      string
	Title   string
	Context string
}

// Load reads and parses a KorQuAD v1.0 JSON file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var ds Dataset
	if err := sonic.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if len(ds.Data) == 0 {
		return nil, fmt.Errorf("dataset %s contains no articles", path)
	}

	return &ds, nil
}

// Documents flattens the dataset into unique passages. Paragraphs sharing
// the same context text are emitted once.
func (ds *Dataset) Documents() []Document {
	var docs []Document
	seen := make(map[string]bool)

	for ai, article := range ds.Data {
		for pi, para := range article.Paragraphs {
			context := strings.TrimSpace(para.Context)
			if context == "" {
				continue
			}
			hash := textutil.HashString(context)
			if seen[hash] {
				continue
			}
			seen[hash] = true

			docs = append(docs, Document{
				ID:      paragraphID(para, ai, pi),
				Title:   article.Title,
				Context: context,
			})
		}
	}

	return docs
}

// paragraphID prefers the first annotated question ID, which is the
// identifier the KorQuAD response format cites.
func paragraphID(para Paragraph, articleIdx, paraIdx int) string {
	if len(para.QAs) > 0 && para.QAs[0].ID != "" {
		return para.QAs[0].ID
	}
	return fmt.Sprintf("doc-%d-%d", articleIdx, paraIdx)
}

// Chunk is a slice of a document ready for embedding.
type Chunk struct {
	// ID uniquely identifies the chunk inside the collection.
	ID string
	// DocumentID is the originating KorQuAD paragraph ID.
	DocumentID string
	Title      string
	Content    string
	// Seq is the chunk position within its document.
	Seq int
}

// minChunkRunes drops fragments too short to carry retrievable content.
const minChunkRunes = 20

// ChunkDocuments splits documents into overlapping chunks of chunkSize
// runes. Fragments shorter than 20 runes are discarded.
func ChunkDocuments(docs []Document, chunkSize, overlap int) []Chunk {
	var chunks []Chunk

	for _, doc := range docs {
		parts := textutil.SplitIntoChunks(doc.Context, chunkSize, overlap)
		seq := 0
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if len([]rune(part)) < minChunkRunes {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("%s#%d", doc.ID, seq),
				DocumentID: doc.ID,
				Title:      doc.Title,
				Content:    part,
				Seq:        seq,
			})
			seq++
		}
	}

	return chunks
}

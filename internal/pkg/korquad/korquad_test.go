package korquad_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanq-io/hanq/internal/pkg/korquad"
)

const sampleJSON = `{
  "version": "KorQuAD_v1.0_train",
  "data": [
    {
      "title": "대한민국",
      "paragraphs": [
        {
          "context": "대한민국은 동아시아의 한반도 남부에 있는 공화국이다. 수도는 서울특별시이며, 인구는 약 오천만 명이다.",
          "qas": [
            {
              "id": "6566495-0-0",
              "question": "대한민국의 수도는 어디인가?",
              "answers": [{"text": "서울특별시", "answer_start": 31}]
            }
          ]
        },
        {
          "context": "대한민국은 동아시아의 한반도 남부에 있는 공화국이다. 수도는 서울특별시이며, 인구는 약 오천만 명이다.",
          "qas": [
            {
              "id": "6566495-0-1",
              "question": "대한민국의 인구는 얼마인가?",
              "answers": [{"text": "약 오천만 명", "answer_start": 47}]
            }
          ]
        },
        {
          "context": "한강은 수도 서울을 가로질러 흐르는 강으로, 총 길이는 약 494km에 이른다.",
          "qas": []
        }
      ]
    }
  ]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "korquad_sample.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	ds, err := korquad.Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, "KorQuAD_v1.0_train", ds.Version)
	require.Len(t, ds.Data, 1)
	assert.Equal(t, "대한민국", ds.Data[0].Title)
	assert.Len(t, ds.Data[0].Paragraphs, 3)
	assert.Equal(t, "서울특별시", ds.Data[0].Paragraphs[0].QAs[0].Answers[0].Text)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := korquad.Load("/nonexistent/korquad.json")
	assert.Error(t, err)
}

func TestLoadEmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v1","data":[]}`), 0o644))

	_, err := korquad.Load(path)
	assert.ErrorContains(t, err, "no articles")
}

func TestDocumentsDeduplicatesContexts(t *testing.T) {
	ds, err := korquad.Load(writeSample(t))
	require.NoError(t, err)

	docs := ds.Documents()
	// The first two paragraphs share a context and collapse to one document.
	require.Len(t, docs, 2)
	assert.Equal(t, "6566495-0-0", docs[0].ID)
	assert.Equal(t, "대한민국", docs[0].Title)
	// Paragraph without QAs falls back to a positional ID.
	assert.Equal(t, "doc-0-2", docs[1].ID)
}

func TestChunkDocuments(t *testing.T) {
	docs := []korquad.Document{
		{ID: "d1", Title: "제목", Context: strings.Repeat("가나다라마바사아자차", 12)},
	}

	chunks := korquad.ChunkDocuments(docs, 50, 10)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, "d1", c.DocumentID)
		assert.Equal(t, i, c.Seq)
		assert.Contains(t, c.ID, "#")
		assert.GreaterOrEqual(t, len([]rune(c.Content)), 20)
	}
}

func TestChunkDocumentsSkipsShortFragments(t *testing.T) {
	docs := []korquad.Document{
		{ID: "d1", Title: "제목", Context: "짧은 문서."},
	}
	assert.Empty(t, korquad.ChunkDocuments(docs, 500, 50))
}

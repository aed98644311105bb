package biz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = `{
  "version": "KorQuAD_v1.0_dev",
  "data": [
    {
      "title": "한국 지리",
      "paragraphs": [
        {
          "context": "대한민국의 수도는 서울특별시이다. 서울은 한강 유역에 위치하며 조선 시대부터 수도였다.",
          "qas": [
            {
              "id": "6566495-0-0",
              "question": "한국의 수도는 어디인가요?",
              "answers": [{"text": "서울특별시", "answer_start": 9}]
            }
          ]
        }
      ]
    }
  ]
}`

func writeTestDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "korquad.json")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o600))
	return path
}

func TestIndexDataset(t *testing.T) {
	vs := &fakeVectorStore{}
	indexer := NewIndexer(vs, &fakeEmbedder{}, &IndexerConfig{
		Collection:   "test_docs",
		EmbeddingDim: 3,
		ChunkSize:    500,
		ChunkOverlap: 50,
		BatchSize:    32,
	})

	stats, err := indexer.IndexDataset(context.Background(), writeTestDataset(t), false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, 1, stats.Indexed)
	assert.False(t, vs.dropped)

	require.Len(t, vs.inserted, 1)
	chunk := vs.inserted[0]
	assert.Equal(t, "6566495-0-0", chunk.DocumentID)
	assert.Equal(t, "한국 지리", chunk.Title)
	assert.Contains(t, chunk.Content, "서울특별시")
	assert.Len(t, chunk.Embedding, 3)
}

func TestIndexDatasetRecreate(t *testing.T) {
	vs := &fakeVectorStore{}
	indexer := NewIndexer(vs, &fakeEmbedder{}, &IndexerConfig{
		Collection:   "test_docs",
		EmbeddingDim: 3,
		ChunkSize:    500,
		ChunkOverlap: 50,
	})

	_, err := indexer.IndexDataset(context.Background(), writeTestDataset(t), true, nil)
	require.NoError(t, err)
	assert.True(t, vs.dropped)
}

func TestIndexDatasetReportsProgress(t *testing.T) {
	vs := &fakeVectorStore{}
	indexer := NewIndexer(vs, &fakeEmbedder{}, &IndexerConfig{
		Collection:   "test_docs",
		EmbeddingDim: 3,
		ChunkSize:    500,
		ChunkOverlap: 50,
		BatchSize:    32,
	})

	var reports [][2]int
	_, err := indexer.IndexDataset(context.Background(), writeTestDataset(t), false, func(indexed, total int) {
		reports = append(reports, [2]int{indexed, total})
	})
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, last[0], last[1])
}

func TestIndexDatasetMissingFile(t *testing.T) {
	indexer := NewIndexer(&fakeVectorStore{}, &fakeEmbedder{}, &IndexerConfig{
		Collection:   "test_docs",
		EmbeddingDim: 3,
		ChunkSize:    500,
		ChunkOverlap: 50,
	})

	_, err := indexer.IndexDataset(context.Background(), "/nonexistent/korquad.json", false, nil)
	require.Error(t, err)
}

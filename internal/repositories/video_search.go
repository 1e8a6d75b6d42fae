package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"go.uber.org/zap"
)

// VideoSearchIndex mirrors video metadata into Elasticsearch for full-text
// search. The database stays the source of truth; search only returns IDs.
type VideoSearchIndex interface {
	IndexVideo(ctx context.Context, video *models.Video) error
	RemoveVideo(ctx context.Context, videoID uint64) error
	// SearchVideos returns matching video IDs in relevance order plus the
	// total hit count.
	SearchVideos(ctx context.Context, query string, from, size int) ([]uint64, int64, error)
}

type videoSearchIndex struct {
	client *elasticsearch.Client
	index  string
}

var _ VideoSearchIndex = (*videoSearchIndex)(nil)

func NewVideoSearchIndex(client *elasticsearch.Client, index string) VideoSearchIndex {
	return &videoSearchIndex{client: client, index: index}
}

type videoDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Username    string `json:"username"`
}

func (s *videoSearchIndex) IndexVideo(ctx context.Context, video *models.Video) error {
	doc := videoDocument{
		Title:       video.Title,
		Description: video.Description,
		Username:    video.Username,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal video document: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(strconv.FormatUint(video.ID, 10)),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		logger.Error("Error indexing video", zap.Uint64("id", video.ID), zap.Error(err))
		return fmt.Errorf("index video %d: %w", video.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		logger.Error("Elasticsearch rejected video document", zap.Uint64("id", video.ID), zap.String("status", res.Status()))
		return fmt.Errorf("index video %d: %s", video.ID, res.Status())
	}
	return nil
}

func (s *videoSearchIndex) RemoveVideo(ctx context.Context, videoID uint64) error {
	res, err := s.client.Delete(
		s.index,
		strconv.FormatUint(videoID, 10),
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		logger.Error("Error removing video from index", zap.Uint64("id", videoID), zap.Error(err))
		return fmt.Errorf("remove video %d: %w", videoID, err)
	}
	defer res.Body.Close()
	// A 404 means the document was never indexed. Nothing to do.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove video %d: %s", videoID, res.Status())
	}
	return nil
}

func (s *videoSearchIndex) SearchVideos(ctx context.Context, query string, from, size int) ([]uint64, int64, error) {
	searchBody := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "description", "username"},
			},
		},
	}
	body, err := json.Marshal(searchBody)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithFrom(from),
		s.client.Search.WithSize(size),
	)
	if err != nil {
		logger.Error("Error searching videos", zap.String("query", query), zap.Error(err))
		return nil, 0, fmt.Errorf("search videos: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search videos: %s", res.Status())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uint64, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			logger.Warn("Skipping non-numeric document ID in search results", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, result.Hits.Total.Value, nil
}

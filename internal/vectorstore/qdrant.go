package vectorstore

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements VectorStore using a single Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url, collection string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, collection: collection}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection if it does not already exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}
	return s.createCollection(ctx, dimension)
}

// Recreate drops the collection (if present) and creates it fresh.
func (s *QdrantStore) Recreate(ctx context.Context, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}
	return s.createCollection(ctx, dimension)
}

func (s *QdrantStore) createCollection(ctx context.Context, dimension int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert inserts or updates chunks in the index.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]*qdrant.Value{
			"content": qdrant.NewValueString(chunk.Content),
		}
		for k, v := range chunk.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID),
			Payload: payload,
			Vectors: qdrant.NewVectors(chunk.Vector...),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Search performs similarity search and returns results ordered by
// ascending distance. Qdrant reports cosine similarity (larger is better);
// it is converted to cosine distance (1 - similarity) so callers see the
// smaller-is-better metric the rest of the system expects.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{
			ID:       point.Id.GetUuid(),
			Distance: 1 - point.Score,
			Metadata: make(map[string]string),
		}
		fillFromPayload(&result.Content, result.Metadata, point.Payload)
		results = append(results, result)
	}

	return results, nil
}

// GetAll returns every indexed chunk via count + scroll.
func (s *QdrantStore) GetAll(ctx context.Context) ([]StoredChunk, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []StoredChunk{}, nil
	}
	if count > math.MaxUint32 {
		count = math.MaxUint32
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(count)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection: %w", err)
	}

	chunks := make([]StoredChunk, 0, len(points))
	for _, point := range points {
		chunk := StoredChunk{
			ID:       point.Id.GetUuid(),
			Metadata: make(map[string]string),
		}
		fillFromPayload(&chunk.Content, chunk.Metadata, point.Payload)
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// Count returns the exact number of indexed chunks.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// fillFromPayload extracts the content field and remaining payload entries.
func fillFromPayload(content *string, metadata map[string]string, payload map[string]*qdrant.Value) {
	for k, v := range payload {
		if k == "content" {
			*content = v.GetStringValue()
			continue
		}
		metadata[k] = v.GetStringValue()
	}
}

// Ensure QdrantStore implements VectorStore
var _ VectorStore = (*QdrantStore)(nil)

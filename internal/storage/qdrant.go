package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// Qdrant stores entries as points in a Qdrant collection over gRPC.
type Qdrant struct {
	client *qdrant.Client
	host   string
	port   int
	logger *zap.Logger

	mu    sync.Mutex
	ready bool
	dim   int
}

var _ Index = (*Qdrant)(nil)

// NewQdrant connects to Qdrant and waits for it to answer a health check.
func NewQdrant(ctx context.Context, host string, port int, logger *zap.Logger) (*Qdrant, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create qdrant client: %w", ErrStorage, err)
	}

	s := &Qdrant{client: client, host: host, port: port, logger: logger}
	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w: %v", ErrStorage, ErrUnreachable, err)
	}

	logger.Info("qdrant index connected", zap.String("host", host), zap.Int("port", port))
	return s, nil
}

// healthCheckWithRetry retries with exponential backoff: 500ms initial,
// 10s max interval, 30s overall.
func (s *Qdrant) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health implements Index.
func (s *Qdrant) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("%w: health check: %w", ErrStorage, err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("%w: health check returned invalid response", ErrStorage)
	}
	return nil
}

// pointID derives a stable UUIDv5 from a file id.
func pointID(fileID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docintel:"+fileID)).String()
}

// exists reports whether the collection has been created.
func (s *Qdrant) exists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return true, nil
	}
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	if !slices.Contains(names, CollectionName) {
		return false, nil
	}
	info, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return false, fmt.Errorf("collection info: %w", err)
	}
	s.dim = int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	s.ready = true
	return true, nil
}

// dimension is the collection's vector size, zero until it is known.
func (s *Qdrant) dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// ensureCollection creates the collection sized for dim on first use.
func (s *Qdrant) ensureCollection(ctx context.Context, dim int) error {
	ok, err := s.exists(ctx)
	if err != nil || ok {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "file_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create file_id index: %w", err)
	}

	s.logger.Info("qdrant collection created", zap.String("collection", CollectionName), zap.Int("dimension", dim))
	s.ready = true
	s.dim = dim
	return nil
}

// Upsert implements Index. The collection is sized by the first embedding
// written; later embeddings of another size fail with ErrDimensionMismatch.
func (s *Qdrant) Upsert(ctx context.Context, fileID string, embedding []float32, metadata map[string]string, text string) ([]float32, error) {
	if len(embedding) == 0 {
		return []float32{}, nil
	}
	if err := s.ensureCollection(ctx, len(embedding)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if dim := s.dimension(); dim != 0 && dim != len(embedding) {
		return nil, fmt.Errorf("%w: %w: upsert %s: got %d, collection has %d",
			ErrStorage, ErrDimensionMismatch, fileID, len(embedding), dim)
	}

	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointID(fileID)),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"file_id":  fileID,
				"document": text,
				"metadata": meta,
			}),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upsert %s: %w", ErrStorage, fileID, err)
	}
	return cloneVector(embedding), nil
}

// Delete implements Index.
func (s *Qdrant) Delete(ctx context.Context, fileID string) {
	ok, err := s.exists(ctx)
	if err != nil {
		s.logger.Warn("delete failed", zap.String("file_id", fileID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointID(fileID))),
	})
	if err != nil {
		s.logger.Warn("delete failed", zap.String("file_id", fileID), zap.Error(err))
	}
}

// Search implements Index. A query whose size differs from the collection's
// matches nothing, like the other drivers.
func (s *Qdrant) Search(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if len(query) == 0 || topK <= 0 {
		return []Match{}, nil
	}
	ok, err := s.exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return []Match{}, nil
	}
	if dim := s.dimension(); dim != 0 && dim != len(query) {
		s.logger.Debug("query dimension differs from collection",
			zap.Int("query", len(query)), zap.Int("collection", dim))
		return []Match{}, nil
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrStorage, err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		metadata := map[string]string{}
		if st := payload["metadata"].GetStructValue(); st != nil {
			for k, v := range st.GetFields() {
				metadata[k] = v.GetStringValue()
			}
		}
		matches = append(matches, Match{
			FileID:   payload["file_id"].GetStringValue(),
			Score:    float64(result.Score),
			Metadata: metadata,
			Text:     payload["document"].GetStringValue(),
		})
	}
	sortMatches(matches)
	return matches, nil
}

// Count implements Index.
func (s *Qdrant) Count(ctx context.Context) (int, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}
	return int(n), nil
}

// Close implements Index.
func (s *Qdrant) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

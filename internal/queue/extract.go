package queue

import (
	"context"
	"encoding/json"
	"fmt"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/traceguard/backend/internal/storage"
	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/resolve"
	pgxstore "github.com/traceguard/backend/pkg/store/pgx"
)

// ExtractedRelationConfidence is the fixed confidence assigned to relations
// supplied by the extraction collaborator.
const ExtractedRelationConfidence = 0.85

// maxParallelResolutions bounds concurrent entity resolutions per message.
const maxParallelResolutions = 8

// ExtractMessage is one extraction payload. Candidates are either inline or
// stored as a JSON document under DocumentKey.
type ExtractMessage struct {
	Source      string                     `json:"source"`
	DocumentKey string                     `json:"document_key,omitempty"`
	Entities    []common.EntityCandidate   `json:"entities"`
	Relations   []common.RelationCandidate `json:"relations"`
}

// ProcessExtractMessage ingests one extraction payload: every entity
// candidate is resolved (or created) concurrently, then each relation
// candidate is asserted between its resolved endpoints at the fixed
// extraction confidence. Re-delivery of the same message converges on the
// same entities and edges.
func ProcessExtractMessage(ctx context.Context, s3Client *awss3.Client, pool *pgxpool.Pool, body string) error {
	var msg ExtractMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to decode extract message: %w", err)
	}

	if msg.DocumentKey != "" {
		data, err := storage.GetFile(ctx, s3Client, msg.DocumentKey)
		if err != nil {
			return fmt.Errorf("failed to fetch extraction document %q: %w", msg.DocumentKey, err)
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to decode extraction document %q: %w", msg.DocumentKey, err)
		}
	}

	resolver := resolve.NewService(pgxstore.NewStorageWithConnection(pool))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelResolutions)
	for _, candidate := range msg.Entities {
		g.Go(func() error {
			_, err := resolver.ResolveOrCreate(groupCtx, candidate.Text, candidate.Label, "")
			if err != nil {
				return fmt.Errorf("failed to resolve candidate %q: %w", candidate.Text, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Relations run after all endpoints exist; sequential on purpose so two
	// relations over the same endpoints never race a create against itself.
	for _, rel := range msg.Relations {
		if err := resolver.UpsertRelation(ctx, rel.Subject, rel.Object, rel.Relationship, ExtractedRelationConfidence); err != nil {
			return fmt.Errorf("failed to register relation %q -> %q: %w", rel.Subject, rel.Object, err)
		}
	}

	logger.Info("[Extract] Ingested extraction payload", "source", msg.Source, "entities", len(msg.Entities), "relations", len(msg.Relations))
	return nil
}

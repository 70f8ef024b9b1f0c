package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/laurel/internal/tracing"
	"github.com/Ramsey-B/laurel/pkg/models"
)

// ProjectMerge records one merge as a MERGED_INTO edge between entity nodes.
// The write is idempotent: re-projecting the same merge id is a no-op.
func (c *Client) ProjectMerge(ctx context.Context, record models.MergeRecord) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.ProjectMerge")
	defer span.End()

	_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `
			MERGE (from:Entity {entity_id: $from_entity_id})
			MERGE (to:Entity {entity_id: $to_entity_id})
			MERGE (from)-[r:MERGED_INTO {merge_id: $merge_id}]->(to)
			SET r.reason = $reason,
			    r.timestamp = $timestamp,
			    r.caused_by = $caused_by
		`
		return tx.Run(ctx, cypher, map[string]any{
			"from_entity_id": record.FromEntityID,
			"to_entity_id":   record.ToEntityID,
			"merge_id":       record.MergeID,
			"reason":         record.Reason,
			"timestamp":      record.Timestamp,
			"caused_by":      record.CausedBy,
		})
	})
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"merge_id": record.MergeID,
		}).Error("Failed to project merge")
		return err
	}
	return nil
}

// ProjectMergeHistory replays the full merge ledger into the graph.
func (c *Client) ProjectMergeHistory(ctx context.Context, records []models.MergeRecord) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.ProjectMergeHistory")
	defer span.End()

	for _, record := range records {
		if err := c.ProjectMerge(ctx, record); err != nil {
			return err
		}
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"merge_count": len(records),
	}).Info("Projected merge history")
	return nil
}

// LineageChain returns the entity ids reachable from entityID by following
// MERGED_INTO edges, starting with entityID itself.
func (c *Client) LineageChain(ctx context.Context, entityID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.LineageChain")
	defer span.End()

	result, err := c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `
			MATCH (start:Entity {entity_id: $entity_id})
			OPTIONAL MATCH path = (start)-[:MERGED_INTO*]->(target:Entity)
			WITH start, target, length(path) AS depth
			ORDER BY depth
			RETURN start.entity_id AS start_id, collect(target.entity_id) AS targets
		`
		res, err := tx.Run(ctx, cypher, map[string]any{"entity_id": entityID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}

		chain := []string{entityID}
		targets, _ := record.Get("targets")
		if list, ok := targets.([]any); ok {
			for _, item := range list {
				if id, ok := item.(string); ok && id != "" {
					chain = append(chain, id)
				}
			}
		}
		return chain, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

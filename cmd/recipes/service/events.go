package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lyzr/recipes/cmd/recipes/models"
)

// publish emits a recipe event. The write already succeeded, so failures are
// only logged.
func (s *CompositionService) publish(ctx context.Context, event models.RecipeEvent) {
	if s.queue == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.log.WithContext(ctx).Warn("failed to encode recipe event", "type", event.Type, "error", err)
		return
	}

	if err := s.queue.Publish(ctx, EventsTopic, event.RecipeID.String(), data); err != nil {
		s.log.WithContext(ctx).Warn("failed to publish recipe event",
			"type", event.Type,
			"recipe_id", event.RecipeID,
			"error", err,
		)
	}
}

// SubscribeEvents consumes recipe events until ctx ends and records each one
// through telemetry
func (s *CompositionService) SubscribeEvents(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}

	return s.queue.Subscribe(ctx, EventsTopic, func(ctx context.Context, key string, value []byte) error {
		var event models.RecipeEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return fmt.Errorf("decode recipe event %s: %w", key, err)
		}

		s.log.WithRecipeID(key).Debug("recipe event", "type", event.Type, "version", event.Version)

		if s.telemetry != nil {
			s.telemetry.RecordEvent(event.Type, map[string]any{
				"recipe_id":   event.RecipeID.String(),
				"ingredients": event.Lines,
			})
		} else {
			s.metrics.EventObserved(event.Type)
		}
		return nil
	})
}

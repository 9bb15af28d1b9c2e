package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/recipes/cmd/recipes/models"
	"github.com/lyzr/recipes/common/logger"
)

// IntegrityService detects and repairs rows left behind by a write that
// failed part way through in non-transactional mode
type IntegrityService struct {
	integrity   IntegrityStore
	ingredients IngredientStore
	tx          TxRunner
	log         *logger.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewIntegrityService creates an integrity service. tx may be nil.
func NewIntegrityService(integrity IntegrityStore, ingredients IngredientStore, tx TxRunner, log *logger.Logger) *IntegrityService {
	return &IntegrityService{
		integrity:   integrity,
		ingredients: ingredients,
		tx:          tx,
		log:         log,
		sleep:       sleepCtx,
	}
}

// Check lists orphaned ingredient rows and dangling links
func (s *IntegrityService) Check(ctx context.Context) (*models.IntegrityReport, error) {
	orphans, err := s.integrity.OrphanIngredients(ctx)
	if err != nil {
		return nil, err
	}

	dangling, err := s.integrity.DanglingLinks(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.IntegrityReport{OrphanIngredients: orphans, DanglingLinks: make([]models.RecipeIngredient, 0, len(dangling))}
	for _, link := range dangling {
		report.DanglingLinks = append(report.DanglingLinks, *link)
	}

	return report, nil
}

// Repair deletes dangling links first, since that can orphan ingredient rows,
// then every orphaned ingredient. It returns what was removed.
//
// With settle > 0 orphans are sampled, then Repair waits settle before
// deleting, and only rows orphaned in both samples go. A Create running
// without a transaction links its fresh definitions within that window, so
// they are kept.
func (s *IntegrityService) Repair(ctx context.Context, settle time.Duration) (*models.IntegrityReport, error) {
	var candidates map[uuid.UUID]bool
	if settle > 0 {
		first, err := s.integrity.OrphanIngredients(ctx)
		if err != nil {
			return nil, err
		}
		candidates = make(map[uuid.UUID]bool, len(first))
		for _, id := range first {
			candidates[id] = true
		}

		if err := s.sleep(ctx, settle); err != nil {
			return nil, err
		}
	}

	report := &models.IntegrityReport{}
	skipped := 0

	repair := func(ctx context.Context) error {
		report.DanglingLinks, report.OrphanIngredients, skipped = nil, nil, 0

		dangling, err := s.integrity.DanglingLinks(ctx)
		if err != nil {
			return err
		}
		for _, link := range dangling {
			if err := s.integrity.DeleteLink(ctx, link.RecipeID, link.IngredientID); err != nil {
				return err
			}
			report.DanglingLinks = append(report.DanglingLinks, *link)
			if candidates != nil {
				candidates[link.IngredientID] = true
			}
		}

		orphans, err := s.integrity.OrphanIngredients(ctx)
		if err != nil {
			return err
		}
		for _, id := range orphans {
			if candidates != nil && !candidates[id] {
				skipped++
				continue
			}
			if err := s.ingredients.DeleteByID(ctx, id); err != nil {
				return err
			}
			report.OrphanIngredients = append(report.OrphanIngredients, id)
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.WithinTx(ctx, repair)
	} else {
		err = repair(ctx)
	}
	if err != nil {
		s.log.Error("integrity repair failed", "error", err)
		return nil, err
	}

	s.log.WithFields(map[string]any{
		"dangling_links":     len(report.DanglingLinks),
		"orphan_ingredients": len(report.OrphanIngredients),
		"skipped_recent":     skipped,
	}).Info("integrity repair complete")

	return report, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

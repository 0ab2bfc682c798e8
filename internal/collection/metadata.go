package collection

import (
	"context"
	"errors"

	"notes-client/internal/metrics"
)

// LoadMetadata последовательно загружает категории, теги и статистику. Ошибки
// логируются и возвращаются вместе, фаза Store не меняется.
func (s *Store) LoadMetadata(ctx context.Context) error {
	var errs []error

	categories, err := s.notes.ListCategories(ctx)
	metrics.GatewayCall("notes.list_categories", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("load categories failed")
		errs = append(errs, err)
	} else {
		s.mu.Lock()
		s.state.Categories = categories
		s.enqueueLocked()
		s.mu.Unlock()
		s.outbox.Flush()
	}

	tags, err := s.notes.ListTags(ctx)
	metrics.GatewayCall("notes.list_tags", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("load tags failed")
		errs = append(errs, err)
	} else {
		s.mu.Lock()
		s.state.Tags = tags
		s.enqueueLocked()
		s.mu.Unlock()
		s.outbox.Flush()
	}

	stats, err := s.notes.GetStatistics(ctx)
	metrics.GatewayCall("notes.statistics", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("load statistics failed")
		errs = append(errs, err)
	} else {
		s.mu.Lock()
		s.state.Statistics = stats
		s.enqueueLocked()
		s.mu.Unlock()
		s.outbox.Flush()
	}

	return errors.Join(errs...)
}

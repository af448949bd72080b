package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// categoryFilter builds the "matches this indicator" predicate shared by
// CountItemsByCategory and DailyItemCounts: a news item matches when any of
// its categories overlaps categories, or its source_type is one of
// sourceTypes, so certain source types count as an implicit category, e.g.
// GDELT/ACLED rows count toward the conflict indicator even when
// categories wasn't populated for that row.
func categoryFilter(categories, sourceTypes []string) (string, []any) {
	var clauses []string
	var args []any

	if len(categories) > 0 {
		clauses = append(clauses, "list_has_any(categories, ?)")
		args = append(args, categories)
	}
	if len(sourceTypes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sourceTypes)), ",")
		clauses = append(clauses, fmt.Sprintf("source_type IN (%s)", placeholders))
		for _, s := range sourceTypes {
			args = append(args, s)
		}
	}
	if len(clauses) == 0 {
		return "1=0", nil
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// CountItemsByCategory counts news_items collected in [from, to] whose
// categories or source_type match the indicator's definition.
func (s *Store) CountItemsByCategory(ctx context.Context, categories, sourceTypes []string, from, to time.Time) (int, error) {
	filter, filterArgs := categoryFilter(categories, sourceTypes)
	args := append([]any{from, to}, filterArgs...)

	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM news_items WHERE collected_at >= ? AND collected_at <= ? AND %s`, filter)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count items by category: %w", err)
	}
	return n, nil
}

// DailyItemCounts returns the daily count of items matching the same
// predicate as CountItemsByCategory, keyed by "2006-01-02", for sparkline
// rendering. Only days with at least one item appear in the map; callers
// zero-fill and order the days themselves.
func (s *Store) DailyItemCounts(ctx context.Context, categories, sourceTypes []string, from, to time.Time) (map[string]int, error) {
	filter, filterArgs := categoryFilter(categories, sourceTypes)
	args := append([]any{from, to}, filterArgs...)

	query := fmt.Sprintf(`
		SELECT CAST(collected_at AS DATE) AS d, COUNT(*) AS n
		FROM news_items
		WHERE collected_at >= ? AND collected_at <= ? AND %s
		GROUP BY d`, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: daily item counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("store: scan daily item count: %w", err)
		}
		out[day.Format("2006-01-02")] = n
	}
	return out, rows.Err()
}

// RunCounts reports total and successfully-completed CollectionRuns started
// since the given time, plus the sum of items_new across completed runs,
// for the collection_health indicator.
func (s *Store) RunCounts(ctx context.Context, since time.Time) (total, successful, itemsNew int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collection_runs WHERE started_at >= ?`, since).Scan(&total); err != nil {
		return 0, 0, 0, fmt.Errorf("store: count runs: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(items_new), 0) FROM collection_runs
		WHERE started_at >= ? AND status = ?`, since, "completed")
	if err = row.Scan(&successful, &itemsNew); err != nil {
		return 0, 0, 0, fmt.Errorf("store: count successful runs: %w", err)
	}
	return total, successful, itemsNew, nil
}

// CountEntityMentions counts EntityMentions for userID's tracked entities
// recorded at or after since, for the entity_activity indicator.
func (s *Store) CountEntityMentions(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entity_mentions WHERE user_id = ? AND timestamp >= ?`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count entity mentions: %w", err)
	}
	return n, nil
}

// CountTrackedEntities counts userID's tracked entities, surfaced in the
// entity_activity indicator's metadata.
func (s *Store) CountTrackedEntities(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracked_entities WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count tracked entities: %w", err)
	}
	return n, nil
}

// CategoryBreakdown counts items collected since the given time grouped by
// source_type, a proxy for category.
func (s *Store) CategoryBreakdown(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_type, COUNT(*) FROM news_items WHERE collected_at >= ? GROUP BY source_type`, since)
	if err != nil {
		return nil, fmt.Errorf("store: category breakdown: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var sourceType string
		var n int
		if err := rows.Scan(&sourceType, &n); err != nil {
			return nil, fmt.Errorf("store: scan category breakdown row: %w", err)
		}
		out[sourceType] = n
	}
	return out, rows.Err()
}

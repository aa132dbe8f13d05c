package accounts

import (
	"context"
	"fmt"
	"time"

	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/tool"

	"gorm.io/gorm/clause"
)

// UpsertWeight records a weight entry, replacing any earlier entry for the
// same user and day.
func (s *Service) UpsertWeight(ctx context.Context, userID string, date time.Time, weightKG float64, notes *string) (*models.WeightLog, error) {
	if weightKG <= 0 || weightKG > 500 {
		return nil, fmt.Errorf("weight must be between 0 and 500 kg")
	}
	entry := &models.WeightLog{
		ID:       tool.GenerateUUIDV7(),
		UserID:   userID,
		Date:     tool.DateOnly(date),
		WeightKG: weightKG,
		Notes:    notes,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"weight_kg", "notes"}),
	}).Create(entry).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save weight entry: %w", err)
	}
	return entry, nil
}

// DeleteWeight removes one of the member's own entries.
func (s *Service) DeleteWeight(ctx context.Context, userID, entryID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&models.WeightLog{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete weight entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no weight entry %s for this user", entryID)
	}
	return nil
}

// WeightStats summarises a member's progress over a queried range.
type WeightStats struct {
	Entries []*models.WeightLog `json:"entries"`
	First   *float64            `json:"first_kg"`
	Latest  *float64            `json:"latest_kg"`
	// Change is latest minus first; negative means weight lost.
	Change *float64 `json:"change_kg"`
	BMI    *float64 `json:"bmi"`
}

// WeightHistory returns entries in [from, to] oldest first plus summary
// stats. Zero times widen the range to everything.
func (s *Service) WeightHistory(ctx context.Context, userID string, from, to time.Time) (*WeightStats, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !from.IsZero() {
		q = q.Where("date >= ?", tool.DateOnly(from))
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", tool.DateOnly(to))
	}
	var entries []*models.WeightLog
	if err := q.Order("date").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list weight entries: %w", err)
	}

	stats := &WeightStats{Entries: entries}
	if len(entries) > 0 {
		first := entries[0].WeightKG
		latest := entries[len(entries)-1].WeightKG
		change := latest - first
		stats.First = &first
		stats.Latest = &latest
		stats.Change = &change

		var u models.User
		if err := s.db.WithContext(ctx).Select("height_cm").First(&u, "id = ?", userID).Error; err == nil {
			if bmi := entries[len(entries)-1].BMI(u.HeightCM); bmi > 0 {
				stats.BMI = &bmi
			}
		}
	}
	return stats, nil
}

// WeightSeries is the chart payload: one label and one value per entry.
type WeightSeries struct {
	Labels  []string  `json:"labels"`
	Weights []float64 `json:"weights"`
}

// WeightChart returns the last N days of entries as parallel series.
func (s *Service) WeightChart(ctx context.Context, userID string, days int) (*WeightSeries, error) {
	if days <= 0 {
		days = 30
	}
	from := tool.DateOnly(time.Now()).AddDate(0, 0, -days)
	var entries []*models.WeightLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, from).
		Order("date").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load weight series: %w", err)
	}
	series := &WeightSeries{
		Labels:  make([]string, 0, len(entries)),
		Weights: make([]float64, 0, len(entries)),
	}
	for _, e := range entries {
		series.Labels = append(series.Labels, e.Date.Format("Jan 02"))
		series.Weights = append(series.Weights, e.WeightKG)
	}
	return series, nil
}

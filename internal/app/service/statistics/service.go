package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/tool"
	types "github.com/trainwise/backend/pkg/types"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Report series types exposed to the admin dashboard charts.
type StatisticType string

const (
	StatisticTypeDailyRevenue       StatisticType = "daily_revenue"
	StatisticTypeAccumulatedRevenue StatisticType = "accumulated_revenue"
	StatisticTypeDailyNewMembers    StatisticType = "daily_new_members"
	StatisticTypeDailySubscriptions StatisticType = "daily_subscriptions"
	StatisticTypeDailyBookings      StatisticType = "daily_bookings"
)

var statisticTypes = []StatisticType{
	StatisticTypeDailyRevenue,
	StatisticTypeAccumulatedRevenue,
	StatisticTypeDailyNewMembers,
	StatisticTypeDailySubscriptions,
	StatisticTypeDailyBookings,
}

type ReportDataItem struct {
	ID StatisticType `json:"id"`
}

type ReportSeriesRequest struct {
	DataItems []*ReportDataItem `json:"data_items"`
}

type ReportSeriesPoint struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type ReportSeriesResponse struct {
	DataItems map[StatisticType][]ReportSeriesPoint `json:"data_items"`
}

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) getDailyRevenue(ctx context.Context) ([]ReportSeriesPoint, error) {
	var results []ReportSeriesPoint
	err := s.db.WithContext(ctx).Table((models.Payment{}).TableName()).
		Select("TO_CHAR(payment_date, 'YYYY-MM-DD') as date, sum(amount_paisa) as value").
		Where("payment_status = ?", types.PaymentStatusCompleted).
		Group("TO_CHAR(payment_date, 'YYYY-MM-DD')").
		Order("date").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getAccumulatedRevenue(ctx context.Context) ([]ReportSeriesPoint, error) {
	var results []ReportSeriesPoint
	err := s.db.WithContext(ctx).Raw(`
WITH min_max_dates AS (
    SELECT MIN(DATE(payment_date)) as min_date, MAX(DATE(payment_date)) as max_date
    FROM payment WHERE payment_status = ?
),
dates AS (
    SELECT generate_series(min_date, max_date, '1 day'::interval) as date FROM min_max_dates
),
daily AS (
    SELECT DATE(payment_date) as date, SUM(amount_paisa) as value
    FROM payment WHERE payment_status = ?
    GROUP BY DATE(payment_date)
)
SELECT TO_CHAR(d.date, 'YYYY-MM-DD') as date, COALESCE(SUM(p.value), 0) as value
FROM dates d
LEFT JOIN daily p ON p.date <= d.date
GROUP BY d.date
ORDER BY d.date
`, types.PaymentStatusCompleted, types.PaymentStatusCompleted).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewMembers(ctx context.Context) ([]ReportSeriesPoint, error) {
	var results []ReportSeriesPoint
	err := s.db.WithContext(ctx).Table((models.User{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("role = ?", types.RoleMember).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailySubscriptions(ctx context.Context) ([]ReportSeriesPoint, error) {
	var results []ReportSeriesPoint
	err := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyBookings(ctx context.Context) ([]ReportSeriesPoint, error) {
	var results []ReportSeriesPoint
	err := s.db.WithContext(ctx).Table((models.Booking{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getReportSeries(ctx context.Context, id StatisticType) ([]ReportSeriesPoint, error) {
	switch id {
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx)
	case StatisticTypeAccumulatedRevenue:
		return s.getAccumulatedRevenue(ctx)
	case StatisticTypeDailyNewMembers:
		return s.getDailyNewMembers(ctx)
	case StatisticTypeDailySubscriptions:
		return s.getDailySubscriptions(ctx)
	case StatisticTypeDailyBookings:
		return s.getDailyBookings(ctx)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", id)
	}
}

// GetReportSeries fans the requested series out concurrently and gathers
// them into one response.
func (s *Service) GetReportSeries(ctx context.Context, request *ReportSeriesRequest) (*ReportSeriesResponse, error) {
	items := request.DataItems
	if len(items) == 0 {
		items = lo.Map(statisticTypes, func(t StatisticType, _ int) *ReportDataItem {
			return &ReportDataItem{ID: t}
		})
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(items))
	resChan := make(chan *lo.Entry[StatisticType, []ReportSeriesPoint], len(items))

	for _, item := range items {
		wg.Add(1)
		go func(di *ReportDataItem) {
			defer wg.Done()
			res, err := s.getReportSeries(ctx, di.ID)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []ReportSeriesPoint]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]ReportSeriesPoint)
	for i := 0; i < len(items); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &ReportSeriesResponse{DataItems: results}, nil
}

// AdminReport is the scalar dashboard block.
type AdminReport struct {
	TotalMembers  int64 `json:"total_members"`
	TotalTrainers int64 `json:"total_trainers"`
	ActiveMembers int64 `json:"active_members"`

	ActiveSubscriptions  int64 `json:"active_subscriptions"`
	ExpiredSubscriptions int64 `json:"expired_subscriptions"`

	CompletedRevenuePaisa int64 `json:"completed_revenue_paisa"`
	PendingPayments       int64 `json:"pending_payments"`
	FailedPayments        int64 `json:"failed_payments"`

	SessionsToday     int64 `json:"sessions_today"`
	SessionsNext7Days int64 `json:"sessions_next_7_days"`

	RecentBookings []*models.Booking `json:"recent_bookings"`
	RecentPayments []*models.Payment `json:"recent_payments"`
}

func (s *Service) GetAdminReport(ctx context.Context, today time.Time) (*AdminReport, error) {
	day := tool.DateOnly(today)
	report := &AdminReport{}
	db := s.db.WithContext(ctx)

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&report.TotalMembers, db.Model(&models.User{}).Where("role = ?", types.RoleMember)},
		{&report.TotalTrainers, db.Model(&models.User{}).Where("role = ?", types.RoleTrainer)},
		{&report.ActiveMembers, db.Model(&models.User{}).Where("role = ? AND is_active = ?", types.RoleMember, true)},
		{&report.ActiveSubscriptions, db.Model(&models.Subscription{}).Where("is_active = ? AND end_date >= ?", true, day)},
		{&report.ExpiredSubscriptions, db.Model(&models.Subscription{}).Where("end_date < ?", day)},
		{&report.PendingPayments, db.Model(&models.Payment{}).Where("payment_status = ?", types.PaymentStatusPending)},
		{&report.FailedPayments, db.Model(&models.Payment{}).Where("payment_status = ?", types.PaymentStatusFailed)},
		{&report.SessionsToday, db.Model(&models.Booking{}).Where("is_active = ? AND start_date = ?", true, day)},
		{&report.SessionsNext7Days, db.Model(&models.Booking{}).Where("is_active = ? AND start_date > ? AND start_date <= ?", true, day, day.AddDate(0, 0, 7))},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	var revenue *int64
	if err := db.Model(&models.Payment{}).
		Select("sum(amount_paisa)").
		Where("payment_status = ?", types.PaymentStatusCompleted).
		Scan(&revenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if revenue != nil {
		report.CompletedRevenuePaisa = *revenue
	}

	if err := db.Preload("Member").Preload("Trainer").
		Order("created_at desc").Limit(5).
		Find(&report.RecentBookings).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent bookings: %w", err)
	}
	if err := db.Preload("Subscription").Preload("Booking").
		Order("created_at desc").Limit(5).
		Find(&report.RecentPayments).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent payments: %w", err)
	}
	return report, nil
}

// TrainerDashboard aggregates one trainer's workload and earnings.
type TrainerDashboard struct {
	SessionsToday     int64 `json:"sessions_today"`
	UpcomingSessions  int64 `json:"upcoming_sessions"`
	TotalSessions     int64 `json:"total_sessions"`
	UniqueMembers     int64 `json:"unique_members"`
	TotalRevenuePaisa int64 `json:"total_revenue_paisa"`
}

func (s *Service) GetTrainerDashboard(ctx context.Context, trainerID string, today time.Time) (*TrainerDashboard, error) {
	day := tool.DateOnly(today)
	db := s.db.WithContext(ctx)
	out := &TrainerDashboard{}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&out.SessionsToday, db.Model(&models.Booking{}).Where("trainer_id = ? AND is_active = ? AND start_date = ?", trainerID, true, day)},
		{&out.UpcomingSessions, db.Model(&models.Booking{}).Where("trainer_id = ? AND is_active = ? AND start_date > ?", trainerID, true, day)},
		{&out.TotalSessions, db.Model(&models.Booking{}).Where("trainer_id = ? AND is_active = ?", trainerID, true)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	if err := db.Model(&models.Booking{}).
		Where("trainer_id = ? AND is_active = ?", trainerID, true).
		Distinct("member_id").Count(&out.UniqueMembers).Error; err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	var revenue *int64
	if err := db.Model(&models.Booking{}).
		Select("sum(price_paisa)").
		Where("trainer_id = ? AND is_active = ?", trainerID, true).
		Scan(&revenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if revenue != nil {
		out.TotalRevenuePaisa = *revenue
	}
	return out, nil
}

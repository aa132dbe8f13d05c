package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/config"
	"github.com/trainwise/backend/pkg/logctx"
	"github.com/trainwise/backend/pkg/tool"
	types "github.com/trainwise/backend/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSlotConflict means the requested slot overlaps an existing active
// booking for the same trainer and date.
var ErrSlotConflict = errors.New("trainer slot already booked")

const MaxDurationHours = 3

type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

// Request is a validated private-class booking intent.
type Request struct {
	TrainerID      string
	StartDate      time.Time
	StartTime      string
	DurationHours  int
	DurationMonths int
}

// Validate normalises and bounds-checks a booking request.
func (r *Request) Validate() error {
	if r.TrainerID == "" {
		return fmt.Errorf("trainer is required")
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	start, err := ParseClock(r.StartTime)
	if err != nil {
		return err
	}
	if r.DurationHours < 1 || r.DurationHours > MaxDurationHours {
		return fmt.Errorf("duration hours must be between 1 and %d", MaxDurationHours)
	}
	if r.DurationMonths < 1 {
		return fmt.Errorf("duration months must be at least 1")
	}
	r.StartDate = tool.DateOnly(r.StartDate)
	// Zero-pad so the stored "HH:MM" can be split positionally downstream.
	r.StartTime = fmt.Sprintf("%02d:%02d", start/60, start%60)
	return nil
}

// Trainer loads an active trainer account.
func (s *Service) Trainer(ctx context.Context, trainerID string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).
		Where("id = ? AND role = ? AND is_active = ?", trainerID, types.RoleTrainer, true).
		First(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to load trainer: %w", err)
	}
	return &u, nil
}

// Trainers lists active trainers for the booking flow.
func (s *Service) Trainers(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	if err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", types.RoleTrainer, true).
		Order("created_at desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list trainers: %w", err)
	}
	return out, nil
}

// activeForTrainerOn returns the trainer's active bookings on one date.
// Pass a transaction handle with forUpdate=true to lock the candidate rows
// for the duration of a commit.
func activeForTrainerOn(tx *gorm.DB, trainerID string, date time.Time, forUpdate bool) ([]*models.Booking, error) {
	q := tx.Model(&models.Booking{}).
		Where("trainer_id = ? AND start_date = ? AND is_active = ?", trainerID, tool.DateOnly(date), true)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out []*models.Booking
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// HasConflict runs the synchronous pre-check before staging. The same check
// re-runs under a row lock inside the committing transaction, so a clean
// pre-check is advisory rather than a guarantee.
func (s *Service) HasConflict(ctx context.Context, req *Request) (bool, error) {
	start, err := ParseClock(req.StartTime)
	if err != nil {
		return false, err
	}
	existing, err := activeForTrainerOn(s.db.WithContext(ctx), req.TrainerID, req.StartDate, false)
	if err != nil {
		return false, fmt.Errorf("failed to load trainer bookings: %w", err)
	}
	return Overlaps(start, req.DurationHours, existing), nil
}

// CreateValidated inserts a booking inside the caller's transaction after
// re-checking the slot under SELECT ... FOR UPDATE. First committed wins;
// a concurrent booking that raced past the pre-check fails here.
func CreateValidated(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	if b.TrainerID != nil {
		start, err := ParseClock(b.StartTime)
		if err != nil {
			return err
		}
		existing, err := activeForTrainerOn(tx.WithContext(ctx), *b.TrainerID, b.StartDate, true)
		if err != nil {
			return fmt.Errorf("failed to lock trainer bookings: %w", err)
		}
		if Overlaps(start, b.DurationHours, existing) {
			return ErrSlotConflict
		}
	}
	if b.ID == "" {
		b.ID = tool.GenerateUUIDV7()
	}
	return tx.WithContext(ctx).Create(b).Error
}

// ListForMember returns all of a member's booked sessions, soonest first.
func (s *Service) ListForMember(ctx context.Context, memberID string) ([]*models.Booking, error) {
	var out []*models.Booking
	if err := s.db.WithContext(ctx).Preload("Trainer").
		Where("member_id = ?", memberID).
		Order("start_date, start_time").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return out, nil
}

// TrainerSchedule returns today's and the coming week's active sessions for
// a trainer.
func (s *Service) TrainerSchedule(ctx context.Context, trainerID string, today time.Time) (todaySessions, upcoming []*models.Booking, err error) {
	day := tool.DateOnly(today)
	weekEnd := day.AddDate(0, 0, 7)

	if err = s.db.WithContext(ctx).Preload("Member").
		Where("trainer_id = ? AND start_date = ? AND is_active = ?", trainerID, day, true).
		Order("start_time").Find(&todaySessions).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load today's sessions: %w", err)
	}
	if err = s.db.WithContext(ctx).Preload("Member").
		Where("trainer_id = ? AND start_date > ? AND start_date <= ? AND is_active = ?", trainerID, day, weekEnd, true).
		Order("start_date, start_time").Find(&upcoming).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load upcoming sessions: %w", err)
	}
	return todaySessions, upcoming, nil
}

// Cancel soft-deletes a member's active booking and cascades a still-Pending
// payment to Cancelled. Completed payments are terminal and untouched.
func (s *Service) Cancel(ctx context.Context, memberID, bookingID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Where("id = ? AND member_id = ? AND is_active = ?", bookingID, memberID, true).
			First(&b).Error; err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if err := tx.Model(&b).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate booking: %w", err)
		}
		if err := tx.Model(&models.Payment{}).
			Where("booking_id = ? AND payment_status = ?", b.ID, types.PaymentStatusPending).
			Update("payment_status", types.PaymentStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel pending payments: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logctx.FromCtx(ctx, s.log).Infow("booking cancelled", "booking_id", bookingID, "member_id", memberID)
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

const provisionBatchSize = 500

// dueCondition - условие попадания записи прогресса (алиас p) в набор к повторению
func dueCondition(now time.Time) (string, []interface{}) {
	return "(p.status IN (?, ?) OR p.next_review_at IS NULL OR p.next_review_at <= ?)",
		[]interface{}{entity.ProgressStatusIncorrect, entity.ProgressStatusUnanswered, entity.NormalizeTime(now)}
}

// ProgressRepo реализует repository.ProgressRepository
type ProgressRepo struct {
	db *gorm.DB
}

// NewProgressRepo создает новый репозиторий прогресса
func NewProgressRepo(db *gorm.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// Get возвращает запись прогресса по составному ключу
func (r *ProgressRepo) Get(ctx context.Context, memberID, questionID uuid.UUID) (*entity.ProgressRecord, error) {
	var rec entity.ProgressRecord
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND question_id = ?", memberID, questionID).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, classifyError("get progress", err)
	}
	return &rec, nil
}

// Update выполняет read-modify-write одной транзакцией: SELECT ... FOR UPDATE, mutate, UPDATE.
// Блокировка строки сериализует конкурентные ответы на один и тот же вопрос.
func (r *ProgressRepo) Update(ctx context.Context, memberID, questionID uuid.UUID, mutate repository.ProgressMutator) (*entity.ProgressRecord, error) {
	var updated entity.ProgressRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec entity.ProgressRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("member_id = ? AND question_id = ?", memberID, questionID).
			Take(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		if err := mutate(&rec); err != nil {
			return err
		}

		// Ключ записи не меняется
		rec.MemberID = memberID
		rec.QuestionID = questionID
		normalizeRecordTimes(&rec)

		if err := rec.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}

		result := tx.Model(&entity.ProgressRecord{}).
			Where("member_id = ? AND question_id = ?", memberID, questionID).
			Updates(map[string]interface{}{
				"status":           rec.Status,
				"correct_streak":   rec.CorrectStreak,
				"interval":         rec.Interval,
				"ease_factor":      rec.EaseFactor,
				"last_reviewed_at": rec.LastReviewedAt,
				"next_review_at":   rec.NextReviewAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}

		updated = rec
		return nil
	})
	if err != nil {
		return nil, classifyError(fmt.Sprintf("update progress member=%s question=%s", memberID, questionID), err)
	}
	return &updated, nil
}

// CreateMissing создает записи, которых еще нет (ON CONFLICT DO NOTHING)
func (r *ProgressRepo) CreateMissing(ctx context.Context, records []entity.ProgressRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for i := range records {
		normalizeRecordTimes(&records[i])
		if records[i].EaseFactor == 0 {
			records[i].EaseFactor = entity.DefaultEaseFactor
		}
		if records[i].Status == "" {
			records[i].Status = entity.ProgressStatusUnanswered
		}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&records, provisionBatchSize)
	if result.Error != nil {
		return 0, classifyError("create progress records", result.Error)
	}
	return result.RowsAffected, nil
}

// ListByMember возвращает все записи участника
func (r *ProgressRepo) ListByMember(ctx context.Context, memberID uuid.UUID) ([]entity.ProgressRecord, error) {
	var records []entity.ProgressRecord
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("question_id").
		Find(&records).Error
	if err != nil {
		return nil, classifyError("list progress", err)
	}
	return records, nil
}

// CountByStatus считает записи участника по статусам в пределах банка
func (r *ProgressRepo) CountByStatus(ctx context.Context, memberID, bankID uuid.UUID) (map[entity.ProgressStatus]int64, error) {
	var rows []struct {
		Status entity.ProgressStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Table("member_question_progress AS p").
		Select("p.status AS status, COUNT(*) AS total").
		Joins("JOIN questions q ON q.id = p.question_id").
		Where("p.member_id = ? AND q.question_bank_id = ?", memberID, bankID).
		Group("p.status").
		Scan(&rows).Error
	if err != nil {
		return nil, classifyError("count progress by status", err)
	}

	counts := make(map[entity.ProgressStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// CountDue считает вопросы банка, подлежащие повторению
func (r *ProgressRepo) CountDue(ctx context.Context, memberID, bankID uuid.UUID, now time.Time) (int64, error) {
	cond, args := dueCondition(now)
	var total int64
	err := r.db.WithContext(ctx).
		Table("member_question_progress AS p").
		Joins("JOIN questions q ON q.id = p.question_id").
		Where("p.member_id = ? AND q.question_bank_id = ?", memberID, bankID).
		Where(cond, args...).
		Count(&total).Error
	if err != nil {
		return 0, classifyError("count due progress", err)
	}
	return total, nil
}

func normalizeRecordTimes(rec *entity.ProgressRecord) {
	if rec.LastReviewedAt != nil {
		t := entity.NormalizeTime(*rec.LastReviewedAt)
		rec.LastReviewedAt = &t
	}
	if rec.NextReviewAt != nil {
		t := entity.NormalizeTime(*rec.NextReviewAt)
		rec.NextReviewAt = &t
	}
}

package review

import (
	"math"
	"time"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// Outcome - результат ответа участника
type Outcome struct {
	Correct bool
}

// State - часть записи прогресса, от которой зависит расписание
type State struct {
	Interval      int
	EaseFactor    float64
	CorrectStreak int
	Status        entity.ProgressStatus
	// NextReviewAt сохраняется без изменений, если расписание не пересчитывается
	NextReviewAt *time.Time
}

// Result - новое состояние записи после ответа
type Result struct {
	Interval      int
	EaseFactor    float64
	Status        entity.ProgressStatus
	CorrectStreak int
	NextReviewAt  *time.Time
	// Graduated - запись только что перешла в correct и получила новый интервал
	Graduated bool
}

// Scheduler вычисляет следующее состояние повторения. Не имеет побочных эффектов.
type Scheduler struct {
	cfg Config
}

// NewScheduler создает планировщик; nil означает DefaultConfig
func NewScheduler(cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scheduler{cfg: *cfg}
}

// Config возвращает копию настроек планировщика
func (s *Scheduler) Config() Config {
	return s.cfg
}

// StateOf извлекает State из записи прогресса
func StateOf(rec *entity.ProgressRecord) State {
	return State{
		Interval:      rec.Interval,
		EaseFactor:    rec.EaseFactor,
		CorrectStreak: rec.CorrectStreak,
		Status:        rec.Status,
		NextReviewAt:  rec.NextReviewAt,
	}
}

// Schedule применяет правило к предыдущему состоянию. Единственный источник времени - now.
func (s *Scheduler) Schedule(outcome Outcome, prior State, now time.Time) Result {
	if !outcome.Correct {
		next := now
		return Result{
			Interval:      0,
			EaseFactor:    prior.EaseFactor,
			Status:        entity.ProgressStatusIncorrect,
			CorrectStreak: 0,
			NextReviewAt:  &next,
		}
	}

	streak := prior.CorrectStreak + 1

	// Один правильный ответ после сброса не засчитывается: нужна серия
	if streak < s.cfg.MasteryStreak || prior.Status == entity.ProgressStatusCorrect {
		return Result{
			Interval:      prior.Interval,
			EaseFactor:    prior.EaseFactor,
			Status:        prior.Status,
			CorrectStreak: streak,
			NextReviewAt:  prior.NextReviewAt,
		}
	}

	interval := s.nextInterval(prior)
	next := now.Add(time.Duration(interval) * 24 * time.Hour)
	return Result{
		Interval:      interval,
		EaseFactor:    s.nextEase(prior.EaseFactor),
		Status:        entity.ProgressStatusCorrect,
		CorrectStreak: streak,
		NextReviewAt:  &next,
		Graduated:     true,
	}
}

// Apply применяет результат к записи прогресса и отмечает время ответа
func (r Result) Apply(rec *entity.ProgressRecord, now time.Time) {
	rec.Interval = r.Interval
	rec.EaseFactor = r.EaseFactor
	rec.Status = r.Status
	rec.CorrectStreak = r.CorrectStreak
	rec.NextReviewAt = r.NextReviewAt
	reviewed := now
	rec.LastReviewedAt = &reviewed
}

func (s *Scheduler) nextInterval(prior State) int {
	switch prior.Interval {
	case 0:
		return s.cfg.FirstInterval
	case s.cfg.FirstInterval:
		return s.cfg.SecondInterval
	}
	return int(math.Round(float64(prior.Interval) * prior.EaseFactor))
}

func (s *Scheduler) nextEase(ease float64) float64 {
	// округление до сотых убирает накопление ошибки float (2.5 + 0.1 + 0.1 ...)
	next := math.Round((ease+s.cfg.EaseBonus)*100) / 100
	return math.Max(s.cfg.MinEaseFactor, next)
}

package review

import "fmt"

// Config содержит константы правила интервального повторения.
// Значения можно переопределить из конфигурации, само правило фиксировано.
type Config struct {
	// InitialEaseFactor - ease factor новой записи
	InitialEaseFactor float64

	// MinEaseFactor - нижняя граница ease factor
	MinEaseFactor float64

	// EaseBonus - прибавка к ease factor при переходе в correct
	EaseBonus float64

	// MasteryStreak - сколько правильных ответов подряд нужно для перехода в correct
	MasteryStreak int

	// FirstInterval - интервал (дни) после первого перехода в correct
	FirstInterval int

	// SecondInterval - интервал (дни), если предыдущий был равен FirstInterval
	SecondInterval int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		InitialEaseFactor: 2.5,
		MinEaseFactor:     1.3,
		EaseBonus:         0.1,
		MasteryStreak:     2,
		FirstInterval:     1,
		SecondInterval:    6,
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.MinEaseFactor <= 0 {
		return fmt.Errorf("min ease factor must be positive, got %v", c.MinEaseFactor)
	}
	if c.InitialEaseFactor < c.MinEaseFactor {
		return fmt.Errorf("initial ease factor %v is below min %v", c.InitialEaseFactor, c.MinEaseFactor)
	}
	if c.EaseBonus < 0 {
		return fmt.Errorf("ease bonus must be non-negative, got %v", c.EaseBonus)
	}
	if c.MasteryStreak < 1 {
		return fmt.Errorf("mastery streak must be at least 1, got %d", c.MasteryStreak)
	}
	if c.FirstInterval < 1 || c.SecondInterval < c.FirstInterval {
		return fmt.Errorf("invalid intervals: first=%d second=%d", c.FirstInterval, c.SecondInterval)
	}
	return nil
}

package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	// Для прогресса это означает, что запись не была создана при провижининге участника.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, неверный пароль команды).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда участник не принадлежит команде из токена.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (повторная отправка с тем же Idempotency-Key, пока первая еще выполняется; дубликат уникального ключа).
	ErrConflict = errors.New("resource state conflict")

	// ErrPersistence используется для временных ошибок хранилища: недоступность БД,
	// таймаут, deadlock, конфликт сериализации. Результат записи неизвестен.
	ErrPersistence = errors.New("persistence failure")
)

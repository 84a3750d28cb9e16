// Package sl содержит вспомогательные функции для работы с логгером slog.
// Назначение — единообразное формирование структурированных полей лога
// во всех сервисах и обработчиках приложения.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to analyze image", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

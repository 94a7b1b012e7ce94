// Package sl хранит атрибуты slog, общие для всех сервисов Subify.
package sl

import "log/slog"

// ErrorKey ключ, под которым ошибка попадает в лог.
const ErrorKey = "error"

// Err оборачивает ошибку в атрибут лога. nil пишется как пустая строка,
// чтобы вызов в ветке без ошибки не ронял процесс.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(ErrorKey, "")
	}
	return slog.String(ErrorKey, err.Error())
}

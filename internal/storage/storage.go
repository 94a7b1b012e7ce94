// Package storage содержит общие ошибки адаптеров хранения состояния.
// Конкретные реализации лежат в подпакетах filestore и postgresql.
package storage

import "errors"

var (
	// ErrNotFound сохраненного состояния еще нет.
	ErrNotFound = errors.New("state not found")
	// ErrMalformed сохраненное состояние не удалось разобрать.
	ErrMalformed = errors.New("state is malformed")
)

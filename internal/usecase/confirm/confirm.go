// Package confirm реализует изменение локального состояния только после
// подтверждения удалённой операции.
package confirm

import "context"

// Do выполняет remote и, только если он завершился успешно, вызывает apply.
// При ошибке apply не вызывается и ошибка возвращается как есть.
func Do(ctx context.Context, remote func(context.Context) error, apply func()) error {
	if err := remote(ctx); err != nil {
		return err
	}
	if apply != nil {
		apply()
	}
	return nil
}

// Fetch выполняет remote и передаёт результат в apply только при успехе.
func Fetch[T any](ctx context.Context, remote func(context.Context) (T, error), apply func(T)) (T, error) {
	result, err := remote(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if apply != nil {
		apply(result)
	}
	return result, nil
}

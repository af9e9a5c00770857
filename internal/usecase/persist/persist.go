// Package persist сохраняет снимки хранилищ в domain.StateStorage.
package persist

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
	"socialvibe/internal/infra/metrics"
)

const saveTimeout = 2 * time.Second

// Namespace привязан к одному пространству имён хранилища.
// Нулевое значение (без storage) ничего не сохраняет.
type Namespace struct {
	storage domain.StateStorage
	name    string
	log     zerolog.Logger
}

// New создаёт привязку к пространству имён.
func New(storage domain.StateStorage, name string, logger zerolog.Logger) Namespace {
	return Namespace{storage: storage, name: name, log: logger}
}

// Save записывает снимок. Ошибки записи логируются и не прерывают операцию:
// состояние в памяти остаётся источником истины процесса.
func (n Namespace) Save(snapshot any) {
	if n.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := n.storage.Save(ctx, n.name, snapshot); err != nil {
		metrics.IncPersistError(n.name)
		n.log.Warn().Err(err).Str("namespace", n.name).Msg("persist: save failed")
	}
}

// Load читает снимок в v. Возвращает false, если данных нет или хранилище не задано.
func (n Namespace) Load(ctx context.Context, v any) (bool, error) {
	if n.storage == nil {
		return false, nil
	}
	return n.storage.Load(ctx, n.name, v)
}

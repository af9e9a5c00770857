package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteCall сопровождает любую сетевую или HTTP ошибку шлюза.
	ErrRemoteCall = errors.New("remote call failed")

	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateAccount возвращается при регистрации занятого имени.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrUnauthenticated возвращается, когда у клиента нет действующей сессии.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrChannelFailure возвращается, когда push-канал закрыт или упал.
	ErrChannelFailure = errors.New("push channel failure")

	// ErrForbiddenRole возвращается, когда роль не допускает операцию.
	ErrForbiddenRole = errors.New("operation not allowed for role")

	// ErrUnknownRole возвращается для роли вне USER и CELEBRITY.
	ErrUnknownRole = errors.New("unknown role")

	// ErrMissingID возвращается, когда у сущности нет идентификатора.
	ErrMissingID = errors.New("missing id")

	// ErrEmptyContent возвращается при попытке опубликовать пустой пост.
	ErrEmptyContent = errors.New("post content is empty")
)

// RemoteError описывает неуспешный ответ бэкенда.
type RemoteError struct {
	Operation string
	Status    int
	Message   string
	// Kind уточняет класс ошибки, например ErrInvalidCredentials.
	// Пустой Kind означает общий ErrRemoteCall.
	Kind error
	// Err хранит транспортную ошибку, например context.DeadlineExceeded.
	Err error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: status=%d message=%s", e.Operation, e.Status, e.Message)
}

// Is позволяет сравнивать RemoteError с ErrRemoteCall и с уточняющей ошибкой.
func (e *RemoteError) Is(target error) bool {
	if target == ErrRemoteCall {
		return true
	}
	return e.Kind != nil && target == e.Kind
}

func (e *RemoteError) Unwrap() error { return e.Err }

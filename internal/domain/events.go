package domain

// EventType описывает тип события push-канала.
type EventType string

const (
	EventNewPost    EventType = "NEW_POST"
	EventDeletePost EventType = "DELETE_POST"
)

// PushEvent — конверт, приходящий по push-каналу.
type PushEvent struct {
	Type EventType `json:"type"`
	Post Post      `json:"post"`
}

// CommandKind описывает команду для хранилища уведомлений.
type CommandKind int

const (
	CommandEnqueue CommandKind = iota + 1
	CommandDismissAuthor
)

// NotificationCommand — типизированная команда, которую потребляет хранилище уведомлений.
type NotificationCommand struct {
	Kind     CommandKind
	Post     Post
	AuthorID string
}

// Enqueue ставит пост в очередь уведомлений.
func Enqueue(post Post) NotificationCommand {
	return NotificationCommand{Kind: CommandEnqueue, Post: post, AuthorID: post.AuthorID}
}

// DismissAuthor снимает все уведомления автора.
func DismissAuthor(authorID string) NotificationCommand {
	return NotificationCommand{Kind: CommandDismissAuthor, AuthorID: authorID}
}

// PushState описывает состояние push-канала.
type PushState int

const (
	PushDisconnected PushState = iota
	PushConnecting
	PushConnected
	PushClosed
	PushError
)

func (s PushState) String() string {
	switch s {
	case PushDisconnected:
		return "DISCONNECTED"
	case PushConnecting:
		return "CONNECTING"
	case PushConnected:
		return "CONNECTED"
	case PushClosed:
		return "CLOSED"
	case PushError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

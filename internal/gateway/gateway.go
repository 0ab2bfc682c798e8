// Package gateway описывает внешних коллабораторов stores: шлюзы к удаленному сервису
// аутентификации и заметок. Реализации: memory (in-memory) и httpapi (REST клиент).
package gateway

import (
	"context"

	"notes-client/internal/model"
	"notes-client/internal/notify"
)

// RegisterRequest параметры регистрации пользователя
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ProfileUpdate изменение профиля; nil-поля не изменяются
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// AuthEvent внеполосное уведомление об изменении личности или валидности сессии
type AuthEvent struct {
	User         *model.User `json:"user,omitempty"`
	SessionValid bool        `json:"sessionValid"`
}

// AuthGateway интерфейс шлюза аутентификации
type AuthGateway interface {
	// Initialize восстанавливает сохраненную сессию (если есть)
	Initialize(ctx context.Context) error

	// Login выполняет вход и возвращает пользователя
	Login(ctx context.Context, email, password string) (model.User, error)

	// Register регистрирует пользователя и сразу открывает сессию
	Register(ctx context.Context, req RegisterRequest) (model.User, error)

	// Logout закрывает сессию. Локальное состояние шлюза очищается всегда,
	// ошибка удаленного вызова возвращается только для логирования.
	Logout(ctx context.Context) error

	// CurrentIdentity возвращает текущего пользователя без сетевого запроса
	CurrentIdentity() *model.User

	// IsSessionValid сообщает, действительна ли текущая сессия, без сетевого запроса
	IsSessionValid() bool

	// ChangePassword меняет пароль текущего пользователя
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error

	// UpdateProfile обновляет профиль текущего пользователя
	UpdateProfile(ctx context.Context, upd ProfileUpdate) (model.User, error)

	// DeleteAccount удаляет учетную запись и закрывает сессию
	DeleteAccount(ctx context.Context) error

	// Subscribe подписывает на внеполосные события сессии
	Subscribe(fn func(AuthEvent)) *notify.Subscription
}

// NotesGateway интерфейс шлюза заметок
type NotesGateway interface {
	// FetchPage возвращает страницу заметок с учетом фильтра и сортировки
	FetchPage(ctx context.Context, q model.PageQuery) (model.Page[model.Note], error)

	// Create создает заметку и возвращает сохраненную копию с ID
	Create(ctx context.Context, note model.Note) (model.Note, error)

	// Update обновляет заметку с указанным ID
	Update(ctx context.Context, id string, note model.Note) (model.Note, error)

	// Delete удаляет заметку по ID
	Delete(ctx context.Context, id string) error

	// ToggleCompletion инвертирует отметку о выполнении
	ToggleCompletion(ctx context.Context, id string) (model.Note, error)

	// ListCategories возвращает доступные категории
	ListCategories(ctx context.Context) ([]string, error)

	// ListTags возвращает доступные теги
	ListTags(ctx context.Context) ([]string, error)

	// GetStatistics возвращает агрегированные счетчики
	GetStatistics(ctx context.Context) (model.Statistics, error)
}

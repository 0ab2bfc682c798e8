package model

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"notes-client/internal/remoteerr"
)

// MaxTags максимальное количество тегов у заметки
const MaxTags = 10

// Note представляет заметку (доменная модель)
type Note struct {
	ID          string    `json:"id,omitempty"`       // Идентификатор (пустой, пока заметка не сохранена на сервере)
	Title       string    `json:"title"`              // Заголовок заметки
	Content     string    `json:"content"`            // Содержание заметки
	IsCompleted bool      `json:"isCompleted"`        // Отметка о выполнении
	CreatedAt   time.Time `json:"createdAt"`          // Дата создания
	UpdatedAt   time.Time `json:"updatedAt"`          // Дата последнего обновления
	OwnerID     string    `json:"ownerId,omitempty"`  // Владелец (User.ID)
	Tags        []string  `json:"tags"`               // Упорядоченный набор тегов
	Priority    Priority  `json:"priority"`           // Приоритет (по умолчанию medium)
	Category    string    `json:"category,omitempty"` // Категория (опционально)
}

// NewNote возвращает черновик заметки (без ID) со значениями по умолчанию
func NewNote() Note {
	return Note{
		Tags:     []string{},
		Priority: PriorityMedium,
	}
}

// IsValid заметка валидна, если заголовок и содержание не пусты после TrimSpace
func (n *Note) IsValid() bool {
	return strings.TrimSpace(n.Title) != "" && strings.TrimSpace(n.Content) != ""
}

// Validate проверяет валидность заметки и возвращает ошибку валидации со всеми нарушениями
func (n *Note) Validate() error {
	var codes []string
	fields := make(map[string]string)

	if strings.TrimSpace(n.Title) == "" {
		codes = append(codes, remoteerr.CodeTitleRequired)
		fields["title"] = "title cannot be empty"
	}
	if strings.TrimSpace(n.Content) == "" {
		codes = append(codes, remoteerr.CodeContentRequired)
		fields["content"] = "content cannot be empty"
	}
	if len(NormalizeTags(n.Tags)) > MaxTags {
		codes = append(codes, remoteerr.CodeTooManyTags)
		fields["tags"] = "too many tags"
	}
	if n.Priority != "" && !n.Priority.IsValid() {
		codes = append(codes, remoteerr.CodeInvalidPriority)
		fields["priority"] = "must be one of: low medium high urgent"
	}

	if len(codes) == 0 {
		return nil
	}
	return remoteerr.Validation("note is invalid", codes...).WithFields(fields)
}

// IsEmpty проверяет, пуста ли заметка
func (n *Note) IsEmpty() bool {
	return n.ID == "" && n.Title == "" && n.Content == ""
}

// IsPersisted заметка уже сохранена на сервере (имеет ID)
func (n *Note) IsPersisted() bool {
	return n.ID != ""
}

// WithCompletionToggled возвращает копию заметки с инвертированным IsCompleted
func (n Note) WithCompletionToggled() Note {
	c := n.Clone()
	c.IsCompleted = !c.IsCompleted
	return c
}

// Clone возвращает глубокую копию заметки
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

// HasTag проверяет наличие тега (без учета регистра)
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// NormalizeTags убирает пробелы, пустые значения и дубликаты, сохраняя порядок первого вхождения
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// ToJSON сериализует заметку. Отсутствующие теги и приоритет заменяются значениями по умолчанию.
func (n Note) ToJSON() ([]byte, error) {
	return json.Marshal(n.withDefaults())
}

// ParseNote разбирает заметку из JSON и подставляет значения по умолчанию:
// priority == medium и tags == [] если поля отсутствуют
func ParseNote(data []byte) (Note, error) {
	var n Note
	if err := json.Unmarshal(data, &n); err != nil {
		return Note{}, err
	}
	return n.withDefaults(), nil
}

func (n Note) withDefaults() Note {
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	return n
}

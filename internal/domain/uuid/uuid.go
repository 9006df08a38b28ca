package uuid

import (
	"github.com/google/uuid"
)

// UUID строковое представление идентификатора
type UUID string

// MustParseUUID парсит строку в UUID или паникует
func MustParseUUID(s string) UUID {
	id, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewUUID создает новый UUID версии 7.
// Лексикографический порядок таких идентификаторов совпадает с порядком их создания,
// поэтому ID используется как tiebreak при сортировке по времени.
func NewUUID() UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return UUID(uuid.New().String())
	}
	return UUID(id.String())
}

// ParseUUID парсит строку в UUID
func ParseUUID(s string) (UUID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return UUID(s), nil
}

// String возвращает строковое представление
func (u UUID) String() string {
	return string(u)
}

// IsZero проверяет, является ли UUID нулевым
func (u UUID) IsZero() bool {
	return u == ""
}


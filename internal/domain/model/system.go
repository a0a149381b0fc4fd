package model

import "time"

// AISystem — зарегистрированная AI-система, для которой отслеживается соответствие.
// Хранится в таблице ai_systems.
type AISystem struct {
	// ID — UUID системы
	ID string
	// Name — название системы
	Name string
	// Description — описание (опционально)
	Description *string
	// RiskCategory — категория риска; определяет набор применимых требований
	RiskCategory RiskCategory
	// Organization — организация-владелец; первый сегмент ключа хранилища evidence
	Organization *string
	// Department — подразделение
	Department *string
	// OwnerEmail — e-mail ответственного
	OwnerEmail *string
	// CreatedAt — время регистрации
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

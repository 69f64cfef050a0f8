package domain

// CanonicalFields são os campos de uma inscrição já aparados e validados.
// Só são produzidos quando todas as verificações passaram; a partir daí
// pertencem a quem chamou (normalmente a camada de persistência).
type CanonicalFields struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Package application contém os casos de uso (regras de aplicação) da admissão
// de inscrições: o Gate que compõe payload, rate limit e validação, a decisão
// allow/deny genérica e o limite de concorrência.
//
// Ele depende apenas de domain e validation e não conhece net/http.
// Ex.: Gate.Admit(...) retorna os campos canônicos ou um *domain.Rejection.
package application

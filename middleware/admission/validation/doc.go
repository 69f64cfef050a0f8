// Package validation valida os campos livres de uma inscrição (email e nome)
// antes que cheguem à persistência.
//
// Cada validador executa verificações estruturais baratas (tamanho, bytes nulos,
// caracteres de controle) antes das expressões regulares, e devolve o valor
// aparado ou um *domain.Rejection. A tabela de padrões de ameaça é heurística:
// bloqueia formatos conhecidos de SQL injection, não é um parser de SQL.
package validation

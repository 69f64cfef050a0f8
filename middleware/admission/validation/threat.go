package validation

import "regexp"

type threatPattern struct {
	name string
	re   *regexp.Regexp
}

// ThreatMatcher é uma tabela fixa de padrões pré-compilados, um por formato de ataque.
// É somente leitura depois de criada e pode ser compartilhada entre goroutines.
type ThreatMatcher struct {
	patterns []threatPattern
}

// NewThreatMatcher compila a tabela padrão.
func NewThreatMatcher() *ThreatMatcher {
	return &ThreatMatcher{patterns: []threatPattern{
		{"union", regexp.MustCompile(`(?i)\s+UNION\s+`)},
		{"comment", regexp.MustCompile(`(?i)(--|;|/\*|\*/|xp_|sp_)`)},
		{"stacked", regexp.MustCompile(`(?i);\s*(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER)`)},
		{"timing", regexp.MustCompile(`(?i)(SLEEP|WAITFOR|BENCHMARK|DBMS_LOCK)`)},
		{"tautology", regexp.MustCompile(`(?i)(\bOR\b|\bAND\b)\s*(['"][0-9]*['"]|[0-9]*)\s*=\s*(['"][0-9]*['"]|[0-9]*|True|False)`)},
		{"function", regexp.MustCompile(`(?i)(CAST|CONVERT|SUBSTRING|CONCAT|LOAD_FILE)`)},
	}}
}

// MatchesAny para no primeiro padrão encontrado.
func (m *ThreatMatcher) MatchesAny(input string) bool {
	_, ok := m.Match(input)
	return ok
}

// Match devolve a categoria do primeiro padrão encontrado (ex: "union").
// Serve para log: a categoria é segura de registrar, o input não.
func (m *ThreatMatcher) Match(input string) (string, bool) {
	for _, p := range m.patterns {
		if p.re.MatchString(input) {
			return p.name, true
		}
	}
	return "", false
}

// Threats é a tabela compartilhada usada por ValidateEmail e ValidateName.
var Threats = NewThreatMatcher()

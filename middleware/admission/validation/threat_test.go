package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternByName(t *testing.T, name string) threatPattern {
	t.Helper()
	for _, p := range Threats.patterns {
		if p.name == name {
			return p
		}
	}
	require.Failf(t, "unknown pattern", "%q", name)
	return threatPattern{}
}

func TestThreatMatcher_EachCategory(t *testing.T) {
	tests := []struct {
		pattern string
		inputs  []string
	}{
		{"union", []string{"1 UNION SELECT 1", "x union\tall select"}},
		{"comment", []string{"admin'--", "a;b", "/* x */", "exec xp_cmdshell", "SP_EXECUTESQL"}},
		{"stacked", []string{"x; DROP TABLE users", "1;insert into t", "a ;  Alter table"}},
		{"timing", []string{"sleep(5)", "WAITFOR DELAY '0:0:5'", "benchmark(1000,md5(1))", "dbms_lock.sleep(1)"}},
		{"tautology", []string{"' OR 1=1", `x" and "1"="1"`, "a or '1'='1'", "b AND 1=True"}},
		{"function", []string{"cast(x as int)", "CONVERT(int, x)", "SubString(a,1,1)", "concat(a,b)", "LOAD_FILE('/etc/passwd')"}},
	}

	for _, tt := range tests {
		p := patternByName(t, tt.pattern)
		for _, in := range tt.inputs {
			assert.Truef(t, p.re.MatchString(in), "pattern %s should match %q", tt.pattern, in)
			assert.Truef(t, Threats.MatchesAny(in), "MatchesAny should match %q", in)
		}
	}
}

func TestThreatMatcher_BenignInputs(t *testing.T) {
	for _, in := range []string{"John Doe", "Jean-Pierre O'Brien", "user@example.com", "test.email@domain.co.uk", "Tom and Jerry"} {
		assert.Falsef(t, Threats.MatchesAny(in), "unexpected match for %q", in)
	}
}

func TestThreatMatcher_MatchReportsCategory(t *testing.T) {
	name, ok := Threats.Match("x' UNION SELECT password FROM users--")
	require.True(t, ok)
	assert.Equal(t, "union", name)

	// ';' já é coberto pela categoria de comentário, que vem antes
	name, ok = Threats.Match("x; DROP TABLE users")
	require.True(t, ok)
	assert.Equal(t, "comment", name)

	_, ok = Threats.Match("plain text")
	assert.False(t, ok)
}

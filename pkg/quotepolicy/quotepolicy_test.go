package quotepolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allScopes = []Scope{ScopeNobody, ScopeFollowers, ScopePublic}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, automatic := range allScopes {
		for _, manual := range allScopes {
			p := Policy{Automatic: automatic, Manual: manual}
			encoded := Encode(p)
			assert.Equal(t, p, Decode(encoded), "policy %s/%s", automatic, manual)
			assert.Equal(t, encoded, Encode(Decode(encoded)))
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	assert.Equal(t, int64(0), Encode(Policy{}))
	assert.Equal(t, int64(1<<1), Encode(Policy{Automatic: ScopePublic}))
	assert.Equal(t, int64(1<<2), Encode(Policy{Automatic: ScopeFollowers}))
	assert.Equal(t, int64(1<<17), Encode(Policy{Manual: ScopePublic}))
	assert.Equal(t, int64(1<<18|1<<1), Encode(Policy{Automatic: ScopePublic, Manual: ScopeFollowers}))
}

func TestDecodeFailsClosed(t *testing.T) {
	cases := map[string]struct {
		value int64
		want  Policy
	}{
		"unknown low bit":             {value: 1, want: Policy{}},
		"both flags in automatic":     {value: flagPublic | flagFollowers, want: Policy{}},
		"unknown bit keeps manual":    {value: 1<<5 | flagPublic<<manualShift, want: Policy{Manual: ScopePublic}},
		"corrupt manual keeps auto":   {value: flagFollowers | (flagPublic|1<<9)<<manualShift, want: Policy{Automatic: ScopeFollowers}},
		"bits beyond manual range":    {value: flagPublic | 1<<40, want: Policy{}},
		"negative value":              {value: -1, want: Policy{}},
		"public shifted out of range": {value: flagPublic << 32, want: Policy{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Decode(tc.value)
			assert.Equal(t, tc.want, got)
			assert.NotEqual(t, ScopePublic, got.Automatic)
		})
	}
}

func TestWire(t *testing.T) {
	automatic, manual := Policy{Automatic: ScopeFollowers}.Wire()
	assert.Equal(t, []string{"followers"}, automatic)
	assert.Empty(t, manual)

	p, err := FromWire([]string{"Public"}, []string{"followers"})
	require.NoError(t, err)
	assert.Equal(t, Policy{Automatic: ScopePublic, Manual: ScopeFollowers}, p)

	p, err = FromWire(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Policy{}, p)

	_, err = FromWire([]string{"public", "followers"}, nil)
	require.Error(t, err)

	_, err = FromWire(nil, []string{"nobody"})
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Policy{Automatic: ScopePublic}, Policy{Automatic: ScopePublic, Manual: ScopeFollowers}.Normalize())
	assert.Equal(t, Policy{Automatic: ScopeFollowers}, Policy{Automatic: ScopeFollowers, Manual: ScopeFollowers}.Normalize())
	assert.Equal(t, Policy{Automatic: ScopeFollowers, Manual: ScopePublic}, Policy{Automatic: ScopeFollowers, Manual: ScopePublic}.Normalize())
	assert.Equal(t, Policy{Manual: ScopePublic}, Policy{Manual: ScopePublic}.Normalize())
}

func TestEvaluate(t *testing.T) {
	stranger := Relation{}
	follower := Relation{Follows: true}

	assert.Equal(t, CurrentUserUnknown, Evaluate(Policy{Automatic: ScopePublic}, Relation{Anonymous: true}))
	assert.Equal(t, CurrentUserAutomatic, Evaluate(Policy{}, Relation{IsAuthor: true}))
	assert.Equal(t, CurrentUserAutomatic, Evaluate(Policy{Automatic: ScopePublic}, stranger))
	assert.Equal(t, CurrentUserDenied, Evaluate(Policy{Automatic: ScopeFollowers}, stranger))
	assert.Equal(t, CurrentUserAutomatic, Evaluate(Policy{Automatic: ScopeFollowers}, follower))
	assert.Equal(t, CurrentUserManual, Evaluate(Policy{Automatic: ScopeFollowers, Manual: ScopePublic}, stranger))
	assert.Equal(t, CurrentUserDenied, Evaluate(Policy{Manual: ScopeFollowers}, stranger))
}

func TestEvaluateAutomaticWinsOverManual(t *testing.T) {
	p := Policy{Automatic: ScopeFollowers, Manual: ScopeFollowers}
	assert.Equal(t, CurrentUserAutomatic, Evaluate(p, Relation{Follows: true}))
}

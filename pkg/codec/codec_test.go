package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBooleanRoundTrip(t *testing.T) {
	p, err := Boolean.Encode(true)
	require.NoError(t, err)
	v, err := Boolean.Decode(p)
	require.NoError(t, err)
	require.True(t, v)
}

func TestEnumRejectsOutOfChoices(t *testing.T) {
	e := Enum{Choices: []string{"idle", "running", "error"}}

	p, err := e.Encode("running")
	require.NoError(t, err)
	v, err := e.Decode(p)
	require.NoError(t, err)
	require.Equal(t, "running", v)

	_, err = e.Encode("bogus")
	require.Error(t, err)
}

func TestSIRangeGuard(t *testing.T) {
	s := SI{Unit: "V", Min: 0, Max: 30, Decimals: 3}

	p, err := s.Encode(5.5)
	require.NoError(t, err)
	require.Equal(t, "5.500", string(p))

	_, err = s.Encode(31)
	require.Error(t, err)

	_, err = s.Decode([]byte("-1"))
	require.Error(t, err)
}

func TestJSONRejectsInvalid(t *testing.T) {
	_, err := JSON.Decode([]byte("{not json"))
	require.Error(t, err)

	v, err := JSON.Decode([]byte(`{"a":1}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(v))
}

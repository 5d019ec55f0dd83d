package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		input string
		want  float64
	}{
		{"100.50", 100.50},
		{" 3.25 ", 3.25},
		{"10,5", 10.5}, // comma decimal separator
		{"-42.1", -42.1},
		{"", 0},
		{"n/a", 0},
		{"0", 0},
	} {
		require.Equal(t, test.want, ParseDecimal(test.input), "input %q", test.input)
	}
}

func TestRoundFloat(t *testing.T) {
	t.Parallel()
	require.Equal(t, 3.14, RoundFloat(3.14159, 2))
	require.Equal(t, 3.142, RoundFloat(3.14159, 3))
	require.Equal(t, -2.5, RoundFloat(-2.499999, 1))
}

func TestHashCredential(t *testing.T) {
	t.Parallel()
	a := HashCredential("api-key-one")
	b := HashCredential("api-key-two")

	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
	require.Equal(t, a, HashCredential("api-key-one"), "fingerprint must be stable")
	require.NotContains(t, a, "api-key-one")
}

func TestSendJSONError(t *testing.T) {
	t.Parallel()
	recorder := httptest.NewRecorder()
	SendJSONError(recorder, "something broke", 502)

	require.Equal(t, 502, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "something broke", body["error"])
}

package parsers

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xdubnickas/trading212-tracker/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestParseQuotedFields(t *testing.T) {
	t.Parallel()
	result, err := Parse("Action,Name,Total\n" +
		"Market buy,\"Apple, Inc.\",100.50\n" +
		"Dividend (Dividend),\"She said \"\"hi\"\"\",5.25\n")
	require.NoError(t, err)
	require.Equal(t, []string{"Action", "Name", "Total"}, result.Header)
	require.Len(t, result.Rows, 2)
	require.Equal(t, 0, result.SkippedRows)

	// Quoted commas stay inside the field.
	require.Equal(t, "Apple, Inc.", result.Rows[0]["Name"])
	// A doubled quote inside a quoted field is a literal quote.
	require.Equal(t, `She said "hi"`, result.Rows[1]["Name"])
}

func TestParseArityTolerance(t *testing.T) {
	t.Parallel()
	result, err := Parse("A,B,C,D,E\n" +
		"1,2,3,4,5\n" + // exact
		"1,2,3,4\n" + // one short, padded
		"1,2\n" + // three short, dropped
		"1,2,3,4,5,6,7,8\n") // three over, dropped
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, 2, result.SkippedRows)

	// Missing trailing fields become empty strings.
	require.Equal(t, "4", result.Rows[1]["D"])
	require.Equal(t, "", result.Rows[1]["E"])
}

func TestParseBlankLines(t *testing.T) {
	t.Parallel()
	result, err := Parse("A,B\n\n1,2\n,,\n3,4\n")
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, 0, result.SkippedRows, "blank and separator-only lines are not skips")
	require.Equal(t, "3", result.Rows[1]["A"])
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()
	result, err := Parse("")
	require.NoError(t, err)
	require.Empty(t, result.Header)
	require.Empty(t, result.Rows)

	result, err = Parse("Action,Time,Total\n")
	require.NoError(t, err)
	require.Equal(t, []string{"Action", "Time", "Total"}, result.Header)
	require.Empty(t, result.Rows)
}

func TestParseTrimsHeader(t *testing.T) {
	t.Parallel()
	result, err := Parse("Action , Total \nDeposit,100\n")
	require.NoError(t, err)
	require.Equal(t, []string{"Action", "Total"}, result.Header)
	require.Equal(t, "100", result.Rows[0]["Total"])
}

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()
	header := []string{"Action", "Name", "Total"}
	rows := []Row{
		{"Action": "Market buy", "Name": "Apple, Inc.", "Total": "100.50"},
		{"Action": "Dividend", "Name": `quoted "name"`, "Total": "5"},
		{"Action": "Deposit", "Total": "20"}, // Name absent, serializes empty
	}

	text := Serialize(header, rows)
	parsed, err := Parse(text)
	require.NoError(t, err)
	require.Equal(t, header, parsed.Header)
	require.Len(t, parsed.Rows, 3)
	require.Equal(t, "Apple, Inc.", parsed.Rows[0]["Name"])
	require.Equal(t, `quoted "name"`, parsed.Rows[1]["Name"])
	require.Equal(t, "", parsed.Rows[2]["Name"])
}

package fuzz

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func record(t *testing.T, fields ...Field) string {
	t.Helper()
	var buf bytes.Buffer
	JSONLogHandler(&buf, fields)
	line := buf.String()
	require.True(t, strings.HasSuffix(line, "\n"), "one record per line")
	require.True(t, json.Valid([]byte(line)), "record must be valid JSON: %s", line)
	return strings.TrimSuffix(line, "\n")
}

func TestFieldEncoding(t *testing.T) {
	t.Run("char", func(t *testing.T) {
		require.Contains(t, record(t, Char("c", 'A')), `"c":"A"`)
	})
	t.Run("int", func(t *testing.T) {
		require.Contains(t, record(t, Int("d", -3)), `"d":-3`)
	})
	t.Run("float", func(t *testing.T) {
		require.Contains(t, record(t, Float("f", 1.5)), `"f":1.500000`)
	})
	t.Run("octal", func(t *testing.T) {
		require.Contains(t, record(t, Octal("o", 8)), `"o":"0o10"`)
	})
	t.Run("ptr", func(t *testing.T) {
		require.Contains(t, record(t, Ptr("p", 0xdead)), `"p":"0xdead"`)
	})
	t.Run("u64", func(t *testing.T) {
		require.Contains(t, record(t, U64("q", 1<<40)), `"q":1099511627776`)
	})
	t.Run("str", func(t *testing.T) {
		require.Contains(t, record(t, Str("s", `he"llo`)), `"s":"he\"llo"`)
	})
	t.Run("uint", func(t *testing.T) {
		require.Contains(t, record(t, Uint("u", 49698)), `"u":49698`)
	})
	t.Run("hex", func(t *testing.T) {
		require.Contains(t, record(t, Hex("x", 255)), `"x":"0xff"`)
	})
	t.Run("size", func(t *testing.T) {
		require.Contains(t, record(t, Size("z", 65535)), `"z":65535`)
	})
	t.Run("bytes", func(t *testing.T) {
		require.Contains(t, record(t, Bytes("b", []byte{0xde, 0xad})), `"b":"0xdead"`)
	})
	t.Run("non-ascii char stays valid JSON", func(t *testing.T) {
		record(t, Char("c", 0xff))
	})
	t.Run("unknown kind panics", func(t *testing.T) {
		require.Panics(t, func() {
			var buf bytes.Buffer
			JSONLogHandler(&buf, []Field{{Name: "bad", Kind: FieldKind(200)}})
		})
	})
}

func TestRecordShape(t *testing.T) {
	var buf bytes.Buffer
	JSONLogHandler(&buf, []Field{
		Str("function", "io_write16"),
		Uint("port", 49698),
		Uint("value", 4660),
	})

	dec := json.NewDecoder(&buf)
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	for dec.More() {
		k, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, k.(string))
		_, err = dec.Token()
		require.NoError(t, err)
	}
	require.Equal(t, []string{"time", "function", "port", "value"}, keys, "fields serialize in emission order, time first")
}

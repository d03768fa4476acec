package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.Error(t, err)
}

func TestGetRequiredText_AsksAgain(t *testing.T) {
	var out bytes.Buffer
	got, err := GetRequiredText(rdr("\n  \nFence\n"), "Name", &out)
	require.NoError(t, err)
	assert.Equal(t, "Fence", got)
	assert.Equal(t, 2, strings.Count(out.String(), "A value is required."))
}

func TestGetID(t *testing.T) {
	var out bytes.Buffer
	got, err := GetID(rdr("abc\n-3\n0\n42\n"), "County id", &out)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
	assert.Contains(t, out.String(), `"abc" is not a valid id.`)
	assert.Contains(t, out.String(), `"-3" is not a valid id.`)
}

func TestGetMultiline_DoubleEnter(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(rdr("a\nb\n\n\n"), "Enter text", &out)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", got)
}

func TestGetMultiline_EOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(rdr("only"), "Enter text", &out)
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("pw"), pw)

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword(&out)
	require.Error(t, err)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int64
		wantErr string
	}{
		{name: "positive", args: []string{"12"}, want: 12},
		{name: "provisional", args: []string{"-1"}, want: -1},
		{name: "missing", args: nil, wantErr: "missing package id"},
		{name: "zero", args: []string{"0"}, wantErr: `invalid package id "0"`},
		{name: "not a number", args: []string{"x"}, wantErr: `invalid package id "x"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseID(tc.args, 0, "package id")
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

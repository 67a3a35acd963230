package districts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAsset(t *testing.T) {
	l, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, l.Version())
	assert.Equal(t, 13, l.Len())
	assert.Len(t, l.Names(), 12)
	assert.Equal(t, "Datum", l.DateColumn().Code)
	assert.Equal(t, "Date", l.DateColumn().Name)
	assert.True(t, l.IsDateColumn(" datum "))

	want := map[string]string{
		"MI": "Mitte",
		"FK": "Friedrichshain-Kreuzberg",
		"PA": "Pankow",
		"CW": "Charlottenburg-Wilmersdorf",
		"SP": "Spandau",
		"SZ": "Steglitz-Zehlendorf",
		"TS": "Tempelhof-Schöneberg",
		"NK": "Neukölln",
		"TK": "Treptow-Köpenick",
		"MH": "Marzahn-Hellersdorf",
		"LI": "Lichtenberg",
		"RD": "Reinickendorf",
	}
	for code, name := range want {
		got, ok := l.Name(code)
		assert.True(t, ok, code)
		assert.Equal(t, name, got, code)
	}

	_, ok := l.Name("XX")
	assert.False(t, ok)
	name, ok := l.Name(" mi ")
	assert.True(t, ok)
	assert.Equal(t, "Mitte", name)
}

func TestCanonical(t *testing.T) {
	l, err := Default()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Mitte", "Mitte", true},
		{"  Mitte[1] ", "Mitte", true},
		{"Neukölln*", "Neukölln", true},
		{"Neuko\u0308lln", "Neukölln", true}, // decomposed umlaut
		{"Treptow–Köpenick", "Treptow-Köpenick", true},
		{"Tempelhof- Schöneberg", "Tempelhof-Schöneberg", true},
		{"charlottenburg-wilmersdorf", "Charlottenburg-Wilmersdorf", true},
		{"Berlin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := l.Canonical(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Spandau", NormalizeName("Spandau [note 2]"))
	assert.Equal(t, "Steglitz-Zehlendorf", NormalizeName("Steglitz - Zehlendorf"))
	assert.Equal(t, "Pankow", NormalizeName("Pankow²"))
	assert.Equal(t, "", NormalizeName("  [1] "))
}

func TestParseRejectsBrokenAssets(t *testing.T) {
	tests := map[string]string{
		"no version": `
date_column: {code: Datum, name: Date}
districts: [{code: MI, name: Mitte}]`,
		"no date column": `
version: "1"
districts: [{code: MI, name: Mitte}]`,
		"no districts": `
version: "1"
date_column: {code: Datum, name: Date}`,
		"duplicate code": `
version: "1"
date_column: {code: Datum, name: Date}
districts: [{code: MI, name: Mitte}, {code: mi, name: Pankow}]`,
		"duplicate name": `
version: "1"
date_column: {code: Datum, name: Date}
districts: [{code: MI, name: Mitte}, {code: MX, name: mitte}]`,
		"incomplete entry": `
version: "1"
date_column: {code: Datum, name: Date}
districts: [{code: MI}]`,
		"not yaml": `{{{`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsComplete(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("yes: \"Так\"\nno: \"Ні\"\n"), 0o600))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Так", cat.Yes)
	assert.Equal(t, "Ні", cat.No)
	assert.Equal(t, Default().Welcome, cat.Welcome)
}

func TestLoadEmptyPath(t *testing.T) {
	cat, err := Load(" ")
	require.NoError(t, err)
	assert.Equal(t, Default(), cat)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	blank := filepath.Join(t.TempDir(), "blank.yaml")
	require.NoError(t, os.WriteFile(blank, []byte("failure: \"  \"\n"), 0o600))
	_, err = Load(blank)
	assert.ErrorContains(t, err, "failure")

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("welcome: [\n"), 0o600))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	got := Render("No rate for {currency} on {date}. {other}", Vars{"currency": "X_Y", "date": "14.03.2023"})
	assert.Equal(t, `No rate for X\_Y on 14.03.2023. {other}`, got)
	assert.Equal(t, "plain", Render("plain", nil))
}

func TestValidateRejectsPlaceholderInsideEntity(t *testing.T) {
	cat := Default()
	cat.NotFound = "No rate for *{currency}* on {date}."
	assert.ErrorContains(t, cat.Validate(), "not_found")

	cat = Default()
	cat.RateHeader = "_{base}_ on {date}\n"
	assert.ErrorContains(t, cat.Validate(), "rate_header")
}

func TestPlaceholderInEntity(t *testing.T) {
	assert.False(t, placeholderInEntity("Purchase: {purchase_nb}\nSale: {sale_nb}"))
	assert.False(t, placeholderInEntity("*Rate* {base} on {date}"))
	assert.False(t, placeholderInEntity(`a \* {code}`))
	assert.True(t, placeholderInEntity("*{code}*"))
	assert.True(t, placeholderInEntity("_on {date}_"))
}

func TestNotFoundEscapesUserCode(t *testing.T) {
	cases := map[string]string{
		"U_SD": `No rate for U\_SD on 14.03.2023.`,
		"A*B":  `No rate for A\*B on 14.03.2023.`,
	}
	for code, want := range cases {
		assert.Equal(t, want, Render(Default().NotFound, Vars{"currency": code, "date": "14.03.2023"}))
	}
}

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", English},
		{"ro", Romanian},
		{"ro-RO,ro;q=0.9,en;q=0.8", Romanian},
		{"en-GB", English},
		{"de-DE", English},
		{"not a tag !!", English},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.in), tt.in)
	}
}

func TestTranslateFallsBack(t *testing.T) {
	assert.Equal(t, "Caută", Translate("ro").SearchButton)
	assert.Equal(t, "Search", Translate("fr").SearchButton)
	assert.Equal(t, Romanian, Translate("ro-MD").Language)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Network error... Retry later.", Message(English, MsgNetwork))
	assert.Equal(t, Message(English, MsgGeneral), Message(English, "SOMETHING_ELSE"))
	assert.Equal(t, "Locație GPS", SourceLabel(Romanian, "gps"))
	assert.Equal(t, "Default city", SourceLabel(English, "unknown"))
}

func TestTablesAreComplete(t *testing.T) {
	keys := []string{MsgCityInvalid, MsgCityNotFound, MsgNetwork, MsgAuth, MsgServer, MsgGeneral, MsgNotFoundKey, MsgDisplayWeather}
	for _, lang := range Languages() {
		table := Translate(lang)
		for _, k := range keys {
			assert.NotEmpty(t, table.Errors[k], "%s/%s", lang, k)
		}
		assert.Len(t, table.Sources, 4, lang)
	}
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Power Bill", "power-bill"},
		{"  Power   Bill  ", "power-bill"},
		{"Invoice #42 (final)", "invoice-42-final"},
		{"Acme GmbH & Co. KG", "acme-gmbh-co-kg"},
		{"snake_case_name", "snake-case-name"},
		{"already-a-slug", "already-a-slug"},
		{"---", "untitled"},
		{"", "untitled"},
		{"!!!", "untitled"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Slugify(c.in), "Slugify(%q)", c.in)
	}
}

func TestSlugifyIsIdempotent(t *testing.T) {
	for _, in := range []string{"Power Bill", "Invoice #42", "Ärzte ohne Grenzen"} {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once))
	}
}

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMDEscapesMarkup(t *testing.T) {
	assert.Equal(t, `a\_b\*c\`+"`"+`d\[e]`, MD("a_b*c`d[e]"))
	assert.Equal(t, `ivan\_petrov@mail.ru`, MD("ivan_petrov@mail.ru"))
}

func TestMDLeavesPlainText(t *testing.T) {
	assert.Equal(t, "Иван Петров +7900 (a.b-c!)", MD("Иван Петров +7900 (a.b-c!)"))
}

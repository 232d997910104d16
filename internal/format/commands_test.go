package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplySpokenCommands(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"full stop",
			"the liver is normal full stop the spleen is normal",
			"the liver is normal. The spleen is normal",
		},
		{
			"trailing stop",
			"the study is normal stop",
			"the study is normal.",
		},
		{
			"stop me artifact",
			"appearances are unremarkable stop me",
			"appearances are unremarkable.",
		},
		{
			"new line",
			"line one new line line two",
			"line one\nLine two",
		},
		{
			"new paragraph",
			"no acute fracture new paragraph the lungs are clear",
			"no acute fracture\n\nThe lungs are clear",
		},
		{
			"brackets",
			"see open bracket prior study close bracket",
			"see ( prior study )",
		},
		{
			"colon as command",
			"measurements colon 5 x 3",
			"measurements: 5 x 3",
		},
		{
			"colon cancer untouched",
			"known colon cancer under surveillance",
			"known colon cancer under surveillance",
		},
		{
			"escaped line break token",
			`line one <\n> line two`,
			"line one\nLine two",
		},
		{
			"double escaped token is a paragraph",
			`line one <\n> <\n> line two`,
			"line one\n\nLine two",
		},
		{
			"semicolon and slash",
			"left semicolon right forward slash oblique",
			"left; right / oblique",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplySpokenCommands(tt.in))
		})
	}
}

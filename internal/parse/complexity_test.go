package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplexity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty", "", 1},
		{"straight line", "x = 1\ny = 2", 1},
		{"single if", "If x > 1 Then\n    y = 2\nEnd If", 2},
		{"elseif", "If a Then\nElseIf b Then\nEnd If", 3},
		{"boolean operators", "If a And b Or c Then\nEnd If", 4},
		{"case without else", "Select Case x\nCase 1\nCase 2\nCase Else\nEnd Select", 4},
		{"for loop", "For i = 1 To 10\nNext i", 2},
		{"do while counts both", "Do While x < 3\nLoop", 3},
		{"commented branch", "' If a Then\nx = 1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Complexity(tt.body))
		})
	}
}

func TestMaxNesting(t *testing.T) {
	t.Parallel()

	src := `For i = 1 To 3
    If a Then
        With rs
        End With
    End If
Next i
`
	assert.Equal(t, 3, MaxNesting(src))
	assert.Equal(t, 0, MaxNesting("x = 1"))
	assert.Equal(t, 1, MaxNesting("Do While x\n    If y Then Exit Do\nLoop"))
	assert.Equal(t, 0, MaxNesting("Open f For Input As #1\nClose #1"))
}

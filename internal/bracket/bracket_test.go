package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchClosing(t *testing.T) {
	tests := []struct {
		name    string
		program string
		from    int
		want    int
		wantErr error
	}{
		{"flat", "abc}def", 0, 4, nil},
		{"nested", "a{b{c}d}e}f", 0, 10, nil},
		{"braces inside a string are ignored", `"{" }`, 0, 5, nil},
		{"escaped quote does not toggle string state", `"\""}`, 0, 5, nil},
		{"unterminated", "a{b", 0, 0, ErrUnterminated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, err := MatchClosing([]byte(tt.program), tt.from)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, end)
		})
	}
}

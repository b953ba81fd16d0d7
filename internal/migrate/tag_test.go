package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/drifterr"
)

func TestNewTag_LexicalOrderIsChronological(t *testing.T) {
	first := NewTag(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), "brave_otter")
	second := NewTag(time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC), "amber_wren")

	assert.Equal(t, "20240101120000_brave_otter", first)
	assert.Equal(t, "20240101120500_amber_wren", second)
	assert.Less(t, first, second, "earlier unit must sort first regardless of suffix")
}

func TestNewTag_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	tag := NewTag(time.Date(2024, 6, 1, 3, 0, 0, 0, loc), "calm_lynx")
	assert.Equal(t, "20240601000000_calm_lynx", tag)
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "valid tag",
			tag:  "20240101120000_brave_otter",
			want: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "explicit name suffix",
			tag:  "20240101120500_add_users_table",
			want: time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC),
		},
		{
			name:    "short timestamp",
			tag:     "2024010112_brave_otter",
			wantErr: true,
		},
		{
			name:    "missing suffix",
			tag:     "20240101120000",
			wantErr: true,
		},
		{
			name:    "uppercase suffix",
			tag:     "20240101120000_Brave_Otter",
			wantErr: true,
		},
		{
			name:    "month out of range",
			tag:     "20241301120000_brave_otter",
			wantErr: true,
		},
		{
			name:    "unrelated directory",
			tag:     "node_modules",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, err := ParseTag(tt.tag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, drifterr.IsUnparseableTag(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, at)
		})
	}
}

func TestRandomSuffix(t *testing.T) {
	for i := 0; i < 20; i++ {
		suffix := RandomSuffix()
		assert.Regexp(t, `^[a-z]+_[a-z]+$`, suffix)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"add users table", "add_users_table"},
		{"Add-Users--Table", "add_users_table"},
		{"  v2 / cleanup!  ", "v2_cleanup"},
		{"___", ""},
		{"already_fine", "already_fine"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}
}

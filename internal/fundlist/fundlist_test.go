package fundlist

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `# watch list
017174

  # indented comment 999999
023537 513260
fund: 019449, again 017174
not a code 12345
`
	codes, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"017174", "023537", "513260", "019449"}, codes)
}

func TestParseFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "funds.txt", []byte("017174\n017174\n001186\n"), 0o644))

	codes, err := ParseFile(fsys, "funds.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"017174", "001186"}, codes)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(afero.NewMemMapFs(), "absent.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestParseFile_OnlyComments(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "funds.txt", []byte("# nothing\n\n"), 0o644))

	_, err := ParseFile(fsys, "funds.txt")
	assert.ErrorIs(t, err, ErrNoCodes)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "simple", raw: "017174,023537,513260", want: []string{"017174", "023537", "513260"}},
		{name: "spaces and duplicates", raw: " 017174 , ,017174,001186", want: []string{"017174", "001186"}},
		{name: "too short", raw: "17174", wantErr: true},
		{name: "letters", raw: "01717a", wantErr: true},
		{name: "empty", raw: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseList(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteSample(t *testing.T) {
	fsys := afero.NewMemMapFs()

	require.NoError(t, WriteSample(fsys, "funds_list.txt"))

	codes, err := ParseFile(fsys, "funds_list.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"017174", "023537", "019449", "000628", "009226", "025196", "513260", "016533"}, codes)

	err = WriteSample(fsys, "funds_list.txt")
	assert.ErrorIs(t, err, os.ErrExist)
}

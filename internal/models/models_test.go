package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleBool_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"false"`, false},
		{`"1"`, true},
		{`"0"`, false},
		{`1`, true},
		{`0`, false},
		{`"yes"`, true},
		{`"no"`, false},
	}

	for _, tt := range tests {
		var fb FlexibleBool
		err := json.Unmarshal([]byte(tt.input), &fb)
		assert.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.expected, fb.Bool(), "input: %s", tt.input)
	}

	var fb FlexibleBool
	assert.Error(t, json.Unmarshal([]byte(`"maybe"`), &fb))
}

func TestAnnouncementVisibleTo(t *testing.T) {
	targeted := &Announcement{TargetGroups: []string{"kita-a", "kita-b"}}

	assert.True(t, targeted.VisibleTo([]string{"kita-b"}))
	assert.True(t, targeted.VisibleTo([]string{"kita-c", "kita-a"}))
	assert.False(t, targeted.VisibleTo([]string{"kita-c"}))
	assert.False(t, targeted.VisibleTo(nil))

	everyone := &Announcement{TargetGroups: []string{GroupAll}}
	assert.True(t, everyone.VisibleTo(nil))
	assert.True(t, everyone.VisibleTo([]string{"kita-c"}))

	empty := &Announcement{}
	assert.False(t, empty.VisibleTo([]string{"kita-a"}))
}

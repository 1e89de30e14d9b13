package favorites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPicker_ResetStartsFresh(t *testing.T) {
	p := NewMemoryPicker()
	assert.Equal(t, 0, p.Generation())

	require.NoError(t, p.Select(12))
	p.Reset([]int64{7, -1, 12})

	assert.Equal(t, 1, p.Generation())
	assert.Empty(t, p.Selected())
	assert.Equal(t, []int64{-1, 7, 12}, p.Excluded())

	p.Reset(nil)
	assert.Equal(t, 2, p.Generation())
	assert.Empty(t, p.Excluded())
}

func TestMemoryPicker_Select(t *testing.T) {
	tests := []struct {
		name      string
		excluded  []int64
		selectIDs []int64
		wantErr   bool
		want      []int64
	}{
		{"free ids", []int64{7}, []int64{12, 14}, false, []int64{12, 14}},
		{"duplicates kept once", nil, []int64{12, 12}, false, []int64{12}},
		{"excluded id rejects all", []int64{7}, []int64{12, 7}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewMemoryPicker()
			p.Reset(tt.excluded)

			err := p.Select(tt.selectIDs...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrExcluded)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, p.Selected())
		})
	}
}

func TestMemoryPicker_Search(t *testing.T) {
	p := NewMemoryPicker()
	p.Reset([]int64{7, 12})

	got := p.Search([]Candidate{{7, "Bob"}, {12, "Alice"}, {14, "Dave"}})
	assert.Equal(t, []Candidate{{14, "Dave"}}, got)
}

func TestDefaultColor(t *testing.T) {
	tests := []struct {
		value int64
		want  int
	}{
		{0, 1},
		{7, 8},
		{23, 24},
		{24, 1},
		{-1, 24},
		{-25, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultColor(tt.value), "value %d", tt.value)
	}
}

func TestOrderedList(t *testing.T) {
	set := FilterSet{
		-1: {Value: -1},
		40: {Value: 40},
		3:  {Value: 3},
		7:  {Value: 7},
		12: {Value: 12},
	}

	got := OrderedList(set, 7)
	values := make([]int64, 0, len(got))
	for _, e := range got {
		values = append(values, e.Value)
	}
	assert.Equal(t, []int64{7, 3, 12, 40, -1}, values)
	assert.Nil(t, OrderedList(nil, 7))
}

func TestView_Filters(t *testing.T) {
	base := StaticView{{Value: 1, Label: "Attendees"}}

	v := &View{Base: base}
	assert.Equal(t, []FilterEntry(base), v.Filters())
	assert.NoError(t, v.Init(context.Background()))

	assert.Nil(t, (&View{}).Filters())
}

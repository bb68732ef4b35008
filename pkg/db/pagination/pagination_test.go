package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultLimit}, Pagination{}.Normalize())
	assert.Equal(t, Pagination{Page: 3, Limit: MaxLimit}, Pagination{Page: 3, Limit: 500}.Normalize())
	assert.Equal(t, Pagination{Page: 1, Limit: 5}, Pagination{Page: -2, Limit: 5}.Normalize())
}

func TestWindow(t *testing.T) {
	info := Pagination{Page: 2, Limit: 10}.Window(25)
	assert.Equal(t, PageInfo{Page: 2, TotalPages: 3, Start: 10, End: 20}, info)

	last := Pagination{Page: 3, Limit: 10}.Window(25)
	assert.Equal(t, 20, last.Start)
	assert.Equal(t, 25, last.End)

	past := Pagination{Page: 9, Limit: 10}.Window(25)
	assert.Equal(t, past.Start, past.End)

	empty := Pagination{}.Window(0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Equal(t, 1, empty.Page)
}

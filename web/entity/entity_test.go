package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestNormalize(t *testing.T) {
	p := PageRequest{}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageLimit, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = PageRequest{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, MaxPageLimit, p.Limit)
	assert.Equal(t, 200, p.Offset())
}

func TestNewPagination(t *testing.T) {
	pg := NewPagination(PageRequest{Page: 2, Limit: 10}, 21)
	assert.Equal(t, 3, pg.TotalPages)
	assert.EqualValues(t, 21, pg.Total)

	pg = NewPagination(PageRequest{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, pg.TotalPages)
}

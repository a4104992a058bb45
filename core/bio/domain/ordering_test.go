package domain_test

import (
	"testing"

	"linkbio/core/bio/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplice(t *testing.T) {
	tests := []struct {
		name     string
		items    []string
		from, to int
		want     []string
	}{
		{"forward is not a swap", []string{"A", "B", "C", "D", "E"}, 2, 3, []string{"A", "B", "D", "C", "E"}},
		{"first to last", []string{"A", "B", "C"}, 0, 2, []string{"B", "C", "A"}},
		{"last to first", []string{"A", "B", "C", "D", "E"}, 4, 0, []string{"E", "A", "B", "C", "D"}},
		{"backward", []string{"A", "B", "C", "D", "E"}, 3, 1, []string{"A", "D", "B", "C", "E"}},
		{"same position", []string{"A", "B", "C"}, 1, 1, []string{"A", "B", "C"}},
		{"single", []string{"A"}, 0, 0, []string{"A"}},
		{"from out of range", []string{"A", "B"}, 2, 0, []string{"A", "B"}},
		{"to out of range", []string{"A", "B"}, 0, -1, []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]string(nil), tt.items...)
			got := domain.Splice(in, tt.from, tt.to)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.items, in, "input must not be modified")
		})
	}
}

func TestRenumber(t *testing.T) {
	blocks := make([]domain.Block, 4)
	for i, order := range []int{1, 3, 4, 7} {
		blocks[i] = domain.Block{ID: uuid.Must(uuid.NewV4()), DisplayOrder: order}
	}
	require.False(t, domain.IsDense(blocks))

	changes := domain.Renumber(blocks)

	assert.True(t, domain.IsDense(blocks))
	assert.Equal(t, []domain.OrderChange{
		{BlockID: blocks[1].ID, Order: 2},
		{BlockID: blocks[2].ID, Order: 3},
		{BlockID: blocks[3].ID, Order: 4},
	}, changes)
	assert.Empty(t, domain.Renumber(blocks), "a dense list needs no writes")
}

func TestIsDense(t *testing.T) {
	mk := func(orders ...int) []domain.Block {
		out := make([]domain.Block, len(orders))
		for i, o := range orders {
			out[i].DisplayOrder = o
		}
		return out
	}
	assert.True(t, domain.IsDense(nil))
	assert.True(t, domain.IsDense(mk(1, 2, 3)))
	assert.False(t, domain.IsDense(mk(0, 1, 2)))
	assert.False(t, domain.IsDense(mk(1, 1, 2)))
	assert.False(t, domain.IsDense(mk(1, 3)))
}

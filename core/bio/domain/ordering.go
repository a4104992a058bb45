// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package domain

import "github.com/gofrs/uuid/v5"

// Splice removes the element at from and reinserts it at to (both 0-based).
// It returns a new slice; items is not modified. Out of range indexes yield a copy.
func Splice[T any](items []T, from, to int) []T {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return append([]T(nil), items...)
	}
	rest := make([]T, 0, n-1)
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)

	out := make([]T, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, items[from])
	return append(out, rest[to:]...)
}

// Renumber assigns display orders 1..N in slice order and returns only the
// blocks whose order actually changed.
func Renumber(blocks []Block) []OrderChange {
	var changes []OrderChange
	for i := range blocks {
		want := i + 1
		if blocks[i].DisplayOrder != want {
			changes = append(changes, OrderChange{BlockID: blocks[i].ID, Order: want})
			blocks[i].DisplayOrder = want
		}
	}
	return changes
}

// IsDense reports whether the display orders, in slice order, are exactly 1..N.
func IsDense(blocks []Block) bool {
	for i, b := range blocks {
		if b.DisplayOrder != i+1 {
			return false
		}
	}
	return true
}

func indexOfBlock(blocks []Block, id uuid.UUID) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

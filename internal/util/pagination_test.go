package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size         int
		wantOffset, wantLm int
	}{
		{page: 1, size: 10, wantOffset: 0, wantLm: 10},
		{page: 3, size: 20, wantOffset: 40, wantLm: 20},
		{page: 0, size: 5, wantOffset: 0, wantLm: 5},
		{page: 2, size: 0, wantOffset: 10, wantLm: DefaultPageSize},
		{page: 1, size: 500, wantOffset: 0, wantLm: DefaultPageSize},
	}
	for _, tt := range tests {
		offset, limit := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.wantOffset, offset)
		assert.Equal(t, tt.wantLm, limit)
	}
}

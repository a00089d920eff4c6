package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-server/internal/logger"
	"pos-server/internal/models"
)

type stubSource struct {
	products []models.Product
	err      error
}

func (s stubSource) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.products, s.err
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		want    float64
		wantErr bool
	}{
		{name: "dollar prefix", price: "$3.00", want: 3.00},
		{name: "no prefix", price: "4.50", want: 4.50},
		{name: "whitespace", price: " $2.95 ", want: 2.95},
		{name: "thousands separator", price: "$1,250.00", want: 1250.00},
		{name: "garbage", price: "three dollars", wantErr: true},
		{name: "negative", price: "-1.00", wantErr: true},
		{name: "empty", price: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.price)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild(t *testing.T) {
	log := logger.New("test")
	src := stubSource{products: []models.Product{
		{ID: "espresso", Name: "Espresso", Price: "$3.00"},
		{ID: "broken", Name: "Broken", Price: "n/a"},
	}}

	cat := Build(context.Background(), src, log)

	item, ok := cat.Resolve("espresso")
	require.True(t, ok)
	assert.Equal(t, "Espresso", item.Name)
	assert.Equal(t, 3.00, item.BasePrice)

	_, ok = cat.Resolve("broken")
	assert.False(t, ok, "unparseable price means the product is absent")

	_, ok = cat.Resolve("nonexistent")
	assert.False(t, ok)
}

func TestBuild_SourceFailure(t *testing.T) {
	log := logger.New("test")
	src := stubSource{err: errors.New("connection refused")}

	cat := Build(context.Background(), src, log)

	assert.Equal(t, 0, cat.Len(), "load failure degrades to an empty catalog")
	_, ok := cat.Resolve("espresso")
	assert.False(t, ok)
}

package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(func() *pgxpool.Stat { return nil }, "orderapi")

	ch := make(chan *prometheus.Desc, 20)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, len(c.stats), n)
}

func TestPoolStatsCollector_NilStatCollectsNothing(t *testing.T) {
	c := NewPoolStatsCollector(func() *pgxpool.Stat { return nil }, "orderapi")

	ch := make(chan prometheus.Metric, 20)
	c.Collect(ch)
	close(ch)

	assert.Empty(t, ch)
}

func TestPoolStatsCollector_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPoolStatsCollector(func() *pgxpool.Stat { return nil }, "orderapi")

	require.NoError(t, reg.Register(c))
	assert.Error(t, reg.Register(NewPoolStatsCollector(func() *pgxpool.Stat { return nil }, "orderapi")))
}

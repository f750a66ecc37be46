package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CartMutation("add", nil)
	m.CartMutation("add", nil)
	m.CartMutation("clear", errors.New("boom"))
	m.CartLoadFallback()
	m.SetSessions(3)
	m.ObserveCatalog("fetch_one", "ok", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("clear", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cartLoadFallbacks))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 1, testutil.CollectAndCount(m.catalogDuration))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.Nil(t, New(nil))
	assert.NotPanics(t, func() {
		m.CartMutation("add", nil)
		m.CartLoadFallback()
		m.ObserveCatalog("", "", time.Second)
		m.SetSessions(1)
	})
}

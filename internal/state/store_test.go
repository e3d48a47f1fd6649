package state

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

var keyA = stock.Key{Product: "Box A", Retailer: stock.Walmart}

func TestEvaluateEmitsOnRisingEdgeOnly(t *testing.T) {
	cases := []struct {
		name     string
		readings []bool
		emits    []int
	}{
		{"mixed sequence", []bool{false, true, true, false, true}, []int{1, 4}},
		{"first reading in stock", []bool{true}, []int{0}},
		{"always out", []bool{false, false, false}, nil},
		{"stays in", []bool{true, true, true}, []int{0}},
		{"flapping", []bool{true, false, true, false, true}, []int{0, 2, 4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			var got []int
			for i, in := range tc.readings {
				d := s.Evaluate(keyA, stock.Reading{InStock: in})
				if d.Emit {
					got = append(got, i)
				}
				require.Equal(t, in, d.Current)
			}
			require.Equal(t, tc.emits, got)
		})
	}
}

func TestEvaluateReportsPrevious(t *testing.T) {
	s := New()
	d := s.Evaluate(keyA, stock.Reading{InStock: true})
	require.False(t, d.Previous)
	d = s.Evaluate(keyA, stock.Reading{InStock: false})
	require.True(t, d.Previous)
	require.False(t, d.Emit)
}

func TestKeysAreIndependent(t *testing.T) {
	s := New()
	keyB := stock.Key{Product: "Box A", Retailer: stock.Target}
	keyC := stock.Key{Product: "Box B", Retailer: stock.Walmart}

	require.True(t, s.Evaluate(keyA, stock.Reading{InStock: true}).Emit)
	require.True(t, s.Evaluate(keyB, stock.Reading{InStock: true}).Emit)
	require.False(t, s.Evaluate(keyA, stock.Reading{InStock: true}).Emit)

	_, seen := s.Get(keyC)
	require.False(t, seen)
	require.True(t, s.Evaluate(keyC, stock.Reading{InStock: true}).Emit)

	s.Evaluate(keyB, stock.Reading{InStock: false})
	inA, _ := s.Get(keyA)
	require.True(t, inA)
}

func TestConcurrentEvaluateSameKeyEmitsOnce(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := New()
		var emits atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if s.Evaluate(keyA, stock.Reading{InStock: true}).Emit {
					emits.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		require.Equal(t, int32(1), emits.Load())
	}
}

func TestSnapshotIsSortedCopy(t *testing.T) {
	s := New()
	s.Evaluate(stock.Key{Product: "Zeta", Retailer: stock.Walmart}, stock.Reading{InStock: false, URL: "https://z"})
	s.Evaluate(stock.Key{Product: "Alpha", Retailer: stock.Target}, stock.Reading{
		InStock: true,
		Price:   decimal.NewNullDecimal(decimal.RequireFromString("19.99")),
	})
	s.Evaluate(stock.Key{Product: "Alpha", Retailer: stock.BestBuy}, stock.Reading{InStock: false})

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "Alpha", snap[0].Product)
	require.Equal(t, stock.BestBuy, snap[0].Retailer)
	require.Equal(t, stock.Target, snap[1].Retailer)
	require.Equal(t, "19.99", snap[1].Price)
	require.Equal(t, "Zeta", snap[2].Product)
	require.Equal(t, 3, s.Len())

	snap[0].InStock = true
	in, _ := s.Get(stock.Key{Product: "Alpha", Retailer: stock.BestBuy})
	require.False(t, in)
}

package aggregator

import "pressuredash/internal/modules/pressure/types"

type bucketSum struct {
	sum   float64
	count int
}

// orderedBuckets accumulates sums per key and remembers the order in which
// keys were first seen. Chart labels follow that order.
type orderedBuckets struct {
	keys  []string
	index map[string]int
	sums  []bucketSum
}

func (b *orderedBuckets) add(key string, v float64) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	i, ok := b.index[key]
	if !ok {
		i = len(b.keys)
		b.index[key] = i
		b.keys = append(b.keys, key)
		b.sums = append(b.sums, bucketSum{})
	}
	b.sums[i].sum += v
	b.sums[i].count++
}

func (b *orderedBuckets) averages() []types.TrendBucket {
	out := make([]types.TrendBucket, len(b.keys))
	for i, k := range b.keys {
		s := b.sums[i]
		out[i] = types.TrendBucket{
			Key:     k,
			Average: s.sum / float64(s.count),
			Count:   s.count,
		}
	}
	return out
}

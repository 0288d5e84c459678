package transform

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOdd = errors.New("odd input")

// fanOut emits n copies of "n" for n>0, nothing for 0, and fails for -1.
func fanOut(_ context.Context, n int) ([]string, error) {
	if n < 0 {
		return nil, errOdd
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, strconv.Itoa(n))
	}
	return out, nil
}

func TestEach_PerItemResults(t *testing.T) {
	tr := Each(fanOut)

	results, err := tr.Transform(context.Background(), []int{2, 0, -1, 1})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, []string{"2", "2"}, results[0].Outputs)
	assert.Empty(t, results[1].Outputs)
	assert.True(t, results[1].OK())
	assert.ErrorIs(t, results[2].Err, errOdd)
	assert.False(t, results[2].OK())
	assert.Equal(t, []string{"1"}, results[3].Outputs)

	assert.Equal(t, []string{"2", "2", "1"}, Flatten(results))
	assert.Equal(t, map[int]error{2: errOdd}, Errors(results))
}

func TestEach_BatchOrderMatchesIndividual(t *testing.T) {
	tr := Each(fanOut)
	ctx := context.Background()
	inputs := []int{3, 1, 0, 2, 4, 0, 1}

	batch, err := tr.Transform(ctx, inputs)
	require.NoError(t, err)

	var individual []string
	for _, in := range inputs {
		outs, err := One(ctx, tr, in)
		require.NoError(t, err)
		individual = append(individual, outs...)
	}

	assert.Equal(t, individual, Flatten(batch))
	assert.Equal(t, "3331224444"+"1", strings.Join(Flatten(batch), ""))
}

func TestEach_EmptyBatch(t *testing.T) {
	tr := Each(fanOut)
	results, err := tr.Transform(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, Flatten(results))
}

func TestEach_CancellationBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	tr := Each(func(_ context.Context, n int) ([]int, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return []int{n}, nil
	})

	results, err := tr.Transform(ctx, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
	assert.Equal(t, 2, calls)
}

func TestEach_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := One(ctx, Each(fanOut), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

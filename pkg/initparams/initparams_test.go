package initparams

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformLengthAndBounds(t *testing.T) {
	p, err := Uniform(12, -1, 1, rand.New(rand.NewSource(55)))
	require.NoError(t, err)
	require.Len(t, p, 12)
	for _, v := range p {
		assert.True(t, v >= -1 && v < 1)
	}
}

func TestUniformIsReproducibleForSameSeed(t *testing.T) {
	a, err := Uniform(10, -1, 1, rand.New(rand.NewSource(55)))
	require.NoError(t, err)
	b, err := Uniform(10, -1, 1, rand.New(rand.NewSource(55)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUniformDiffersAcrossSeeds(t *testing.T) {
	a, err := Uniform(10, -1, 1, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	b, err := Uniform(10, -1, 1, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestUniformRejectsInvalidArgs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := Uniform(0, -1, 1, rng)
	assert.Error(t, err)
	_, err = Uniform(10, 1, 1, rng)
	assert.Error(t, err)
	_, err = Uniform(10, 1, -1, rng)
	assert.Error(t, err)
}

func TestXavierLengthAndBounds(t *testing.T) {
	p, err := Xavier(12, 3, 4, rand.New(rand.NewSource(55)))
	require.NoError(t, err)
	require.Len(t, p, 12)

	epsilon := 0.9258200997725514 // sqrt(6)/sqrt(7)
	for _, v := range p {
		assert.True(t, v >= -epsilon && v < epsilon)
	}
}

func TestXavierRejectsNonPositiveFanInOut(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := Xavier(10, 0, 4, rng)
	assert.Error(t, err)
	_, err = Xavier(10, 3, 0, rng)
	assert.Error(t, err)
}

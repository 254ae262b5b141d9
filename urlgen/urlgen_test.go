package urlgen

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errorReader is a mock io.Reader that always returns an error
type errorReader struct{}

func (r *errorReader) Read([]byte) (n int, err error) {
	return 0, errors.New("mocked random number generation error")
}

func TestGenerate(t *testing.T) {
	t.Run("Basic Generation", func(t *testing.T) {
		code, err := Generate(DefaultLength)
		require.NoError(t, err, "Generate() should not return an error")
		require.Len(t, code, DefaultLength, "Generated code should have the requested length")
		for _, char := range code {
			assert.Contains(t, Charset, string(char), "Generated code should only contain valid characters")
		}
	})

	t.Run("Custom Lengths", func(t *testing.T) {
		for _, length := range []int{1, 3, 10, 32} {
			code, err := Generate(length)
			require.NoError(t, err)
			assert.Len(t, code, length)
		}
	})

	t.Run("Invalid Length", func(t *testing.T) {
		_, err := Generate(0)
		assert.ErrorIs(t, err, ErrInvalidLength)

		_, err = Generate(-3)
		assert.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("Multiple Generations", func(t *testing.T) {
		generated := make(map[string]int)
		total := 100000
		for i := 0; i < total; i++ {
			code, err := Generate(8)
			require.NoError(t, err, "Generate() should not return an error")
			generated[code]++
		}

		duplicates := make(map[string]int)
		for code, count := range generated {
			if count > 1 {
				duplicates[code] = count
			}
		}

		t.Logf("Total codes generated: %d", total)
		t.Logf("Unique codes: %d", len(generated))
		t.Logf("Duplication rate: %.6f%%", float64(total-len(generated))/float64(total)*100)

		assert.Empty(t, duplicates, "No codes should be duplicated. Duplicates: %v", duplicates)
	})

	t.Run("Error Handling", func(t *testing.T) {
		// Mock the rand.Reader to return an error
		originalReader := rand.Reader
		rand.Reader = &errorReader{}
		defer func() { rand.Reader = originalReader }()

		_, err := Generate(DefaultLength)
		assert.Error(t, err, "Generate() should return an error when random number generation fails")
		assert.Contains(t, err.Error(), "mocked random number generation error")
	})
}

func TestNewGenerator(t *testing.T) {
	gen := NewGenerator(9)
	code, err := gen()
	require.NoError(t, err)
	assert.Len(t, code, 9)

	gen = NewGenerator(0)
	code, err = gen()
	require.NoError(t, err)
	assert.Len(t, code, DefaultLength, "non-positive lengths fall back to the default")
}

// BenchmarkGenerate measures the performance of the Generate function.
func BenchmarkGenerate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Generate(DefaultLength); err != nil {
			b.Fatal(err)
		}
	}
}

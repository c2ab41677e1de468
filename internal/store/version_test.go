// Tests for the catalog version counter.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

func TestCurrentVersion(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "fresh catalog reports zero",
			check: func(t *testing.T, b *Backend) {
				v, err := b.CurrentVersion(context.Background())
				require.NoError(t, err)
				assert.Equal(t, int64(0), v)
			},
		},
		{
			name: "missing row reports the default",
			check: func(t *testing.T, b *Backend) {
				_, err := b.db.Exec("DELETE FROM catalog_version")
				require.NoError(t, err)
				v, err := b.CurrentVersion(context.Background())
				require.NoError(t, err)
				assert.Equal(t, DefaultVersion, v)
			},
		},
		{
			name: "missing row is recreated by the next mutation",
			check: func(t *testing.T, b *Backend) {
				_, err := b.db.Exec("DELETE FROM catalog_version")
				require.NoError(t, err)
				v, err := b.Mutate(context.Background(), func(*Tx) error { return nil })
				require.NoError(t, err)
				assert.Equal(t, int64(1), v)
			},
		},
		{
			name: "create category then create item yields version 2",
			check: func(t *testing.T, b *Backend) {
				cat := mustCategory(t, b, "可燃ごみ", "#ff0000")
				mustItem(t, b, types.ItemInput{Name: "生ごみ", CategoryID: cat.ID})
				v, err := b.CurrentVersion(context.Background())
				require.NoError(t, err)
				assert.Equal(t, int64(2), v)
			},
		},
		{
			name: "failed mutation leaves version unchanged",
			check: func(t *testing.T, b *Backend) {
				mustCategory(t, b, "可燃ごみ", "#ff0000")
				boom := errors.New("boom")
				_, err := b.Mutate(context.Background(), func(tx *Tx) error {
					if _, err := tx.CreateCategory(context.Background(), types.CategoryInput{Name: "不燃ごみ", Color: "#0000ff"}); err != nil {
						return err
					}
					return boom
				})
				assert.ErrorIs(t, err, boom)

				v, err := b.CurrentVersion(context.Background())
				require.NoError(t, err)
				assert.Equal(t, int64(1), v)

				cats, err := b.Categories(context.Background())
				require.NoError(t, err)
				assert.Len(t, cats.Rows, 1, "rolled-back insert must not be visible")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, setupBackend(t))
		})
	}
}

func TestMutate_ConcurrentBumpsAreNotLost(t *testing.T) {
	b := setupBackend(t)
	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Mutate(context.Background(), func(tx *Tx) error {
				_, err := tx.CreateCategory(context.Background(), types.CategoryInput{
					Name:  fmt.Sprintf("category-%d", i),
					Color: "#123456",
				})
				return err
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	v, err := b.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(writers), v)
}

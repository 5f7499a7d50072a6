package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nolanmyles20/tacticaloffroad/internal/kv"
	"github.com/nolanmyles20/tacticaloffroad/internal/testutil"
)

func TestPostgresStore(t *testing.T) {
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run docker-backed tests")
	}

	ctx := context.Background()
	conn, cleanup := testutil.StartPostgres(ctx, t)
	defer cleanup()

	store := kv.NewPostgres(conn)

	_, err := store.Get(ctx, "absent")
	require.ErrorIs(t, err, kv.ErrNotFound)

	rev, err := store.Put(ctx, "headless_cart_v1", `{"lines":[]}`)
	require.NoError(t, err)
	require.Equal(t, int64(1), rev)

	rev, err = store.Put(ctx, "headless_cart_v1", `{"lines":[{"variantId":"111","qty":2}]}`)
	require.NoError(t, err)
	require.Equal(t, int64(2), rev)

	value, err := store.Get(ctx, "headless_cart_v1")
	require.NoError(t, err)
	require.Contains(t, value, `"variantId":"111"`)

	// independent keys get independent revisions
	rev, err = store.Put(ctx, "headless_cart_ping", "ping-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), rev)

	require.NoError(t, store.Delete(ctx, "headless_cart_v1"))
	_, err = store.Get(ctx, "headless_cart_v1")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// stores returns every Store implementation; each redis one gets its own miniredis server
func stores(t *testing.T) map[string]Store {
	t.Helper()
	newRedis := func(prefix string) Store {
		server := miniredis.RunT(t)
		st := newRedisStore(goredis.NewClient(&goredis.Options{Addr: server.Addr()}), prefix)
		t.Cleanup(func() { st.Close() })
		return st
	}

	return map[string]Store{
		"Memory":               NewMemoryStore(),
		"Redis":                newRedis(""),
		"Redis namespace":      newRedis("classroom:"),
		"Redis glob namespace": newRedis("tenant[1]*:"),
	}
}

func TestStore(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, "students_CS101", "[]"))
			require.NoError(t, store.Set(ctx, "students_MA101", "[]"))
			require.NoError(t, store.Set(ctx, "subjects", "[]"))

			value, ok, err := store.Get(ctx, "subjects")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "[]", value)

			keys, err := store.Keys(ctx, "students_")
			require.NoError(t, err)
			assert.Equal(t, []string{"students_CS101", "students_MA101"}, keys)

			require.NoError(t, store.Delete(ctx, "students_CS101", "unknown"))
			require.NoError(t, store.Delete(ctx))
			keys, err = store.Keys(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"students_MA101", "subjects"}, keys)
		})
	}
}

func TestStoreKeysMatchPrefixLiterally(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "attendance_M*[1_2024-03-12", "{}"))
			require.NoError(t, store.Set(ctx, "attendance_MA101_2024-03-12", "{}"))
			require.NoError(t, store.Set(ctx, `attendance_M\1_2024-03-12`, "{}"))

			keys, err := store.Keys(ctx, "attendance_M*[1_")
			require.NoError(t, err)
			assert.Equal(t, []string{"attendance_M*[1_2024-03-12"}, keys)

			keys, err = store.Keys(ctx, `attendance_M\`)
			require.NoError(t, err)
			assert.Equal(t, []string{`attendance_M\1_2024-03-12`}, keys)
		})
	}
}

func TestRedisStoreNamespace(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	require.NoError(t, server.Set("subjects", "outside"))
	store := newRedisStore(goredis.NewClient(&goredis.Options{Addr: server.Addr()}), "classroom:")
	defer store.Close()

	require.NoError(t, store.Set(ctx, "subjects", "[]"))

	raw, err := server.Get("classroom:subjects")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"subjects"}, keys)

	require.NoError(t, store.Delete(ctx, "subjects"))
	assert.False(t, server.Exists("classroom:subjects"))
	assert.True(t, server.Exists("subjects"))
}

func TestJsonHelpers(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, SetJSON(ctx, store, "record", record{Name: "Math", Count: 3}))
			var decoded record
			ok, err := GetJSON(ctx, store, "record", &decoded)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, record{Name: "Math", Count: 3}, decoded)

			// Corrupt values fall back to the default
			require.NoError(t, store.Set(ctx, "broken", "{not json"))
			fallback := []record{{Name: "default"}}
			ok, err = GetJSON(ctx, store, "broken", &fallback)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, []record{{Name: "default"}}, fallback)

			err = SetJSON(ctx, store, "channel", make(chan int))
			assert.ErrorIs(t, err, ErrEncode)
		})
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Set(ctx, "key", "value")
			_, _, _ = store.Get(ctx, "key")
			_, _ = store.Keys(ctx, "k")
		}(i)
	}
	wg.Wait()

	value, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", value)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(RedisOptions{Addr: "127.0.0.1:1"}, nil)
	assert.Error(t, err)
}

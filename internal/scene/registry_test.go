package scene_test

import (
	"database/sql"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummydirtx/open-gamalta/internal/protocol"
	"github.com/yummydirtx/open-gamalta/internal/scene"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
}

func customScene(t *testing.T, mode protocol.Mode) *scene.Scene {
	t.Helper()
	s, err := scene.New("My Tank", mode, []scene.Keyframe{
		{Hour: 7, Color: protocol.Color{R: 10, CoolWhite: 100}, Brightness: 30},
		{Hour: 12, Color: protocol.Color{R: 200, G: 180, B: 120, CoolWhite: 255}, Brightness: 95},
		{Hour: 21, Brightness: 0},
	})
	require.NoError(t, err)
	return s
}

func Test_Registry(t *testing.T) {
	t.Run("seeded built-ins are retrievable", func(t *testing.T) {
		r := scene.NewRegistry(quietLogger())
		r.Seed(scene.Builtins()...)

		s, ok := r.Get(protocol.ModeFishBlue)
		require.True(t, ok)
		assert.Equal(t, "Fish Blue", s.Name())
	})

	t.Run("register and unregister a custom slot", func(t *testing.T) {
		r := scene.NewRegistry(quietLogger())
		custom := customScene(t, protocol.ModeCustomBasic)

		require.NoError(t, r.Register(custom))
		got, ok := r.Get(protocol.ModeCustomBasic)
		require.True(t, ok)
		assert.Equal(t, "My Tank", got.Name())

		require.NoError(t, r.Unregister(protocol.ModeCustomBasic))
		_, ok = r.Get(protocol.ModeCustomBasic)
		assert.False(t, ok)
	})

	t.Run("list is ordered by mode id", func(t *testing.T) {
		r := scene.NewRegistry(quietLogger())
		r.Seed(scene.Builtins()...)
		require.NoError(t, r.Register(customScene(t, protocol.ModeCustomPro)))

		var previous protocol.Mode
		for _, s := range r.List() {
			assert.GreaterOrEqual(t, s.Mode(), previous)
			previous = s.Mode()
		}
	})
}

func Test_Store_RoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store, err := scene.NewStore(db)
	require.NoError(t, err)

	custom := customScene(t, protocol.ModeCustomBasic)
	require.NoError(t, store.Save(custom))

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, custom.Name(), loaded[0].Name())
	assert.Equal(t, custom.Mode(), loaded[0].Mode())
	assert.Equal(t, custom.Keyframes(), loaded[0].Keyframes())

	t.Run("save replaces the previous definition", func(t *testing.T) {
		replacement, err := scene.New("Replacement", protocol.ModeCustomBasic, []scene.Keyframe{
			{Hour: 9, Brightness: 10},
		})
		require.NoError(t, err)
		require.NoError(t, store.Save(replacement))

		loaded, err := store.LoadAll()
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "Replacement", loaded[0].Name())
		assert.Len(t, loaded[0].Keyframes(), 1)
	})

	t.Run("delete removes the scene", func(t *testing.T) {
		require.NoError(t, store.Delete(protocol.ModeCustomBasic))
		loaded, err := store.LoadAll()
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})
}

func Test_Registry_StoreWriteThrough(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store, err := scene.NewStore(db)
	require.NoError(t, err)

	r := scene.NewRegistry(quietLogger())
	require.NoError(t, r.AttachStore(store))
	require.NoError(t, r.Register(customScene(t, protocol.ModeCustomPro)))

	// a second registry attaching the same store sees the persisted scene
	r2 := scene.NewRegistry(quietLogger())
	require.NoError(t, r2.AttachStore(store))
	got, ok := r2.Get(protocol.ModeCustomPro)
	require.True(t, ok)
	assert.Equal(t, "My Tank", got.Name())

	// built-in seeding is never persisted
	r.Seed(scene.Builtins()...)
	persisted, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

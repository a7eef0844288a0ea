package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/kid-reader-bot/internal/adapter/catalog"
	"github.com/escalopa/kid-reader-bot/internal/app"
	"github.com/escalopa/kid-reader-bot/internal/config"
	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/logger"
)

func setupTestEnvironment(t *testing.T) *environment {
	t.Helper()

	storage, err := app.OpenStorage(logger.NewNop(), &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendMemory, Key: "kid-reader-progress"},
	}, nil)
	require.NoError(t, err)
	stories, err := catalog.Default(8)
	require.NoError(t, err)

	e := &environment{storage: storage, stories: stories, log: logger.NewNop()}

	orig := openEnvironment
	openEnvironment = func(string) (*environment, error) { return e, nil }
	t.Cleanup(func() {
		openEnvironment = orig
		learnerID = ""
		clearAll = false
	})
	return e
}

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func seedMagicWand(e *environment, learner string) {
	record := domain.NewReadingProgress("magic-wand")
	record.WordProgress = domain.WordProgress{0: {}}
	for i := 0; i < 7; i++ {
		record.WordProgress[0][i] = 100
	}
	record.CurrentWordIndex = 7
	record.MarkPageCompleted(0)
	e.storage.Store(learner).Save(context.Background(), record)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "stats")
	assert.Contains(t, names, "show")
	assert.Contains(t, names, "clear")
	assert.Contains(t, names, "status")
}

func TestStatsCmd(t *testing.T) {
	e := setupTestEnvironment(t)
	seedMagicWand(e, "42")

	out, err := execute("stats", "--learner", "42")
	require.NoError(t, err)

	assert.Contains(t, out, "Learner: 42 (kid-reader-progress:42)")
	assert.Contains(t, out, "Stories:          8")
	assert.Contains(t, out, "Completed:        1")
	assert.Contains(t, out, "Average progress: 13%")
	assert.Contains(t, out, "Legacy completed: 1")
	assert.Contains(t, out, "Last read:        magic-wand")
	assert.Contains(t, out, "magic-wand")
	assert.Contains(t, out, "100%")
}

func TestStatsCmd_SharedCollectionIsSeparate(t *testing.T) {
	e := setupTestEnvironment(t)
	seedMagicWand(e, "42")

	out, err := execute("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Learner: shared (kid-reader-progress)")
	assert.Contains(t, out, "Started:          0")
}

func TestShowCmd(t *testing.T) {
	e := setupTestEnvironment(t)
	seedMagicWand(e, "")

	out, err := execute("show", "magic-wand")
	require.NoError(t, err)
	assert.Contains(t, out, `"storyId": "magic-wand"`)
	assert.Contains(t, out, `"completedPages"`)

	out, err = execute("show", "brave-cat")
	require.NoError(t, err)
	assert.Contains(t, out, "No progress stored for brave-cat")
}

func TestShowCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestEnvironment(t)

	_, err := execute("show")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestClearCmd(t *testing.T) {
	e := setupTestEnvironment(t)
	ctx := context.Background()
	seedMagicWand(e, "42")

	out, err := execute("clear", "magic-wand", "--learner", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared magic-wand for learner 42")
	assert.Nil(t, e.storage.Store("42").Load(ctx, "magic-wand"))

	_, err = execute("clear", "no-such-story", "--learner", "42")
	assert.ErrorIs(t, err, domain.ErrStoryNotFound)
}

func TestClearCmd_All(t *testing.T) {
	e := setupTestEnvironment(t)
	ctx := context.Background()
	seedMagicWand(e, "42")

	_, err := execute("clear", "--learner", "42")
	assert.Error(t, err)

	_, err = execute("clear", "magic-wand", "--all", "--learner", "42")
	assert.Error(t, err)
	clearAll = false

	out, err := execute("clear", "--all", "--learner", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared all progress of learner 42")
	assert.Empty(t, e.storage.Store("42").LoadAll(ctx))
}

func TestStatusCmd(t *testing.T) {
	setupTestEnvironment(t)

	out, err := execute("status")
	require.NoError(t, err)
	assert.Contains(t, out, "memory storage is available")
}

func TestRootCmd_EnvironmentError(t *testing.T) {
	orig := openEnvironment
	openEnvironment = func(string) (*environment, error) { return nil, errors.New("no config") }
	t.Cleanup(func() { openEnvironment = orig })

	_, err := execute("stats")
	assert.EqualError(t, err, "no config")
}

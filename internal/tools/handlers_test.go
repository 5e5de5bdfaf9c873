package tools_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibari-ai/hibari/internal/fault"
	"github.com/hibari-ai/hibari/internal/storage"
	"github.com/hibari-ai/hibari/internal/testutil"
	"github.com/hibari-ai/hibari/internal/tools"
)

var (
	testDB      *storage.DB
	testHandler *tools.Handler
)

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := tc.NewTestDB(context.Background(), logger)
	if err != nil {
		tc.Terminate()
		os.Exit(1)
	}
	testDB = db
	testHandler = tools.NewHandler(db)

	code := m.Run()

	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func strPtr(s string) *string { return &s }

func TestCreateTrimsAndStoresTitle(t *testing.T) {
	ctx := context.Background()

	res, err := testHandler.Create(ctx, tools.CreateArgs{
		UserID: "u-create",
		Title:  "  buy milk  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "created", res.Status)
	assert.Equal(t, "buy milk", res.Title)
	assert.NotZero(t, res.ID)
}

func TestCreateTitleBounds(t *testing.T) {
	ctx := context.Background()

	// Whitespace-only title is empty after trimming.
	_, err := testHandler.Create(ctx, tools.CreateArgs{UserID: "u-create", Title: "   "})
	assert.Equal(t, fault.InvalidTitle, fault.KindOf(err))

	// Exactly 500 characters is accepted.
	res, err := testHandler.Create(ctx, tools.CreateArgs{UserID: "u-create", Title: strings.Repeat("a", 500)})
	require.NoError(t, err)
	assert.Len(t, res.Title, 500)

	// 501 characters is rejected.
	_, err = testHandler.Create(ctx, tools.CreateArgs{UserID: "u-create", Title: strings.Repeat("a", 501)})
	assert.Equal(t, fault.InvalidTitle, fault.KindOf(err))
}

func TestHandlersEnforceOwnerIsolation(t *testing.T) {
	ctx := context.Background()

	res, err := testHandler.Create(ctx, tools.CreateArgs{UserID: "alice", Title: "alice's task"})
	require.NoError(t, err)

	// Every handler reports TaskNotFound for the wrong owner, even though
	// the task exists.
	_, err = testHandler.Complete(ctx, tools.CompleteArgs{UserID: "bob", TaskID: res.ID})
	assert.Equal(t, fault.TaskNotFound, fault.KindOf(err))

	_, err = testHandler.Delete(ctx, tools.DeleteArgs{UserID: "bob", TaskID: res.ID})
	assert.Equal(t, fault.TaskNotFound, fault.KindOf(err))

	_, err = testHandler.Update(ctx, tools.UpdateArgs{UserID: "bob", TaskID: res.ID, Title: strPtr("stolen")})
	assert.Equal(t, fault.TaskNotFound, fault.KindOf(err))

	list, err := testHandler.List(ctx, tools.ListArgs{UserID: "bob"})
	require.NoError(t, err)
	assert.Zero(t, list.Count)
}

func TestCompleteIsNotIdempotent(t *testing.T) {
	ctx := context.Background()

	res, err := testHandler.Create(ctx, tools.CreateArgs{UserID: "u-done", Title: "finish report"})
	require.NoError(t, err)

	done, err := testHandler.Complete(ctx, tools.CompleteArgs{UserID: "u-done", TaskID: res.ID})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "finish report", done.Title)

	_, err = testHandler.Complete(ctx, tools.CompleteArgs{UserID: "u-done", TaskID: res.ID})
	assert.Equal(t, fault.AlreadyCompleted, fault.KindOf(err))
}

func TestUpdateRequiresChanges(t *testing.T) {
	ctx := context.Background()

	res, err := testHandler.Create(ctx, tools.CreateArgs{UserID: "u-upd", Title: "draft"})
	require.NoError(t, err)

	_, err = testHandler.Update(ctx, tools.UpdateArgs{UserID: "u-upd", TaskID: res.ID})
	assert.Equal(t, fault.NoChanges, fault.KindOf(err))
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()

	res, err := testHandler.Create(ctx, tools.CreateArgs{
		UserID:      "u-upd2",
		Title:       "old title",
		Description: strPtr("old desc"),
	})
	require.NoError(t, err)

	// Description-only update; the title must survive.
	upd, err := testHandler.Update(ctx, tools.UpdateArgs{
		UserID:      "u-upd2",
		TaskID:      res.ID,
		Description: strPtr("new desc"),
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", upd.Status)
	assert.Equal(t, "old title", upd.Title)

	got, err := testDB.GetTask(ctx, "u-upd2", res.ID)
	require.NoError(t, err)
	assert.Equal(t, "old title", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "new desc", *got.Description)
}

func TestUpdateValidatesNewTitle(t *testing.T) {
	ctx := context.Background()

	res, err := testHandler.Create(ctx, tools.CreateArgs{UserID: "u-upd3", Title: "fine"})
	require.NoError(t, err)

	_, err = testHandler.Update(ctx, tools.UpdateArgs{
		UserID: "u-upd3",
		TaskID: res.ID,
		Title:  strPtr(strings.Repeat("x", 501)),
	})
	assert.Equal(t, fault.InvalidTitle, fault.KindOf(err))
}

func TestDeleteReturnsCapturedTitle(t *testing.T) {
	ctx := context.Background()

	res, err := testHandler.Create(ctx, tools.CreateArgs{UserID: "u-del", Title: "ephemeral"})
	require.NoError(t, err)

	del, err := testHandler.Delete(ctx, tools.DeleteArgs{UserID: "u-del", TaskID: res.ID})
	require.NoError(t, err)
	assert.Equal(t, "deleted", del.Status)
	assert.Equal(t, "ephemeral", del.Title)

	// Deletion is permanent.
	_, err = testHandler.Delete(ctx, tools.DeleteArgs{UserID: "u-del", TaskID: res.ID})
	assert.Equal(t, fault.TaskNotFound, fault.KindOf(err))
}

func TestListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	owner := "u-list"

	first, err := testHandler.Create(ctx, tools.CreateArgs{UserID: owner, Title: "pending one"})
	require.NoError(t, err)
	second, err := testHandler.Create(ctx, tools.CreateArgs{UserID: owner, Title: "done one"})
	require.NoError(t, err)
	_, err = testHandler.Complete(ctx, tools.CompleteArgs{UserID: owner, TaskID: second.ID})
	require.NoError(t, err)

	pending, err := testHandler.List(ctx, tools.ListArgs{UserID: owner, Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, 1, pending.Count)
	assert.Equal(t, first.ID, pending.Tasks[0].ID)
	assert.False(t, pending.Tasks[0].Completed)

	completed, err := testHandler.List(ctx, tools.ListArgs{UserID: owner, Status: "completed"})
	require.NoError(t, err)
	require.Equal(t, 1, completed.Count)
	assert.Equal(t, second.ID, completed.Tasks[0].ID)

	all, err := testHandler.List(ctx, tools.ListArgs{UserID: owner, Status: ""})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)

	_, err = testHandler.List(ctx, tools.ListArgs{UserID: owner, Status: "bogus"})
	assert.Equal(t, fault.ValidationError, fault.KindOf(err))
}

func TestDispatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := tools.NewRegistry(testHandler)

	created, err := r.Dispatch(ctx, tools.ToolAddTask, map[string]any{
		"user_id": "u-dispatch",
		"title":   "via dispatcher",
	})
	require.NoError(t, err)
	action, ok := created.(tools.ActionResult)
	require.True(t, ok)
	assert.Equal(t, "created", action.Status)

	listed, err := r.Dispatch(ctx, tools.ToolListTasks, map[string]any{"user_id": "u-dispatch"})
	require.NoError(t, err)
	list, ok := listed.(tools.ListResult)
	require.True(t, ok)
	assert.Equal(t, 1, list.Count)

	// JSON-decoded task_id arrives as float64.
	completed, err := r.Dispatch(ctx, tools.ToolCompleteTask, map[string]any{
		"user_id": "u-dispatch",
		"task_id": float64(action.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.(tools.ActionResult).Status)
}

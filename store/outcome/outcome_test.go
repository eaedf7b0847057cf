package outcome

import (
	"context"
	"sync"
	"testing"

	"ltiprovider/core"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *db.DB {
	dbs, err := db.Open(db.SqliteInMemory())
	require.Nil(t, err)
	t.Cleanup(func() { _ = dbs.Close() })

	dbs.Update().DB().SetMaxOpenConns(1)

	require.Nil(t, db.Migrate(dbs))
	return dbs
}

func gradedLaunch() *core.LaunchParams {
	return &core.LaunchParams{
		ResultSourcedID:   "sourcedid-1",
		OutcomeServiceURL: "https://lms.example.com/outcome",
		ConsumerKey:       "client_key",
		CourseKey:         "course-v1:org+course+run",
		UsageKey:          "block-v1:org+course+run+type@problem+block@3",
	}
}

func countRows(t *testing.T, dbs *db.DB, model interface{}) int {
	var n int
	require.Nil(t, dbs.View().Model(model).Count(&n).Error)
	return n
}

func TestRegisterIfGraded(t *testing.T) {
	ctx := context.Background()
	user := &core.User{ID: 42}

	t.Run("ungraded launch", func(t *testing.T) {
		dbs := newDB(t)
		s := New(dbs)

		params := gradedLaunch()
		params.ResultSourcedID = ""
		require.Nil(t, s.RegisterIfGraded(ctx, params, user))

		assert.Equal(t, 0, countRows(t, dbs, &core.OutcomeService{}))
		assert.Equal(t, 0, countRows(t, dbs, &core.GradedAssignment{}))
	})

	t.Run("missing outcome service url", func(t *testing.T) {
		dbs := newDB(t)
		s := New(dbs)

		params := gradedLaunch()
		params.OutcomeServiceURL = ""
		require.Nil(t, s.RegisterIfGraded(ctx, params, user))

		assert.Equal(t, 0, countRows(t, dbs, &core.OutcomeService{}))
		assert.Equal(t, 0, countRows(t, dbs, &core.GradedAssignment{}))
	})

	t.Run("missing consumer key", func(t *testing.T) {
		s := New(newDB(t))

		params := gradedLaunch()
		params.ConsumerKey = ""
		assert.Panics(t, func() { _ = s.RegisterIfGraded(ctx, params, user) })
	})

	t.Run("idempotent", func(t *testing.T) {
		dbs := newDB(t)
		s := New(dbs)

		for i := 0; i < 3; i++ {
			require.Nil(t, s.RegisterIfGraded(ctx, gradedLaunch(), user))
		}

		assert.Equal(t, 1, countRows(t, dbs, &core.OutcomeService{}))
		assert.Equal(t, 1, countRows(t, dbs, &core.GradedAssignment{}))

		params := gradedLaunch()
		assignments, err := s.FindAssignments(ctx, user.ID, params.CourseKey, params.UsageKey)
		require.Nil(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, "sourcedid-1", assignments[0].ResultSourcedID)

		service, err := s.FindOutcomeService(ctx, assignments[0].OutcomeServiceID)
		require.Nil(t, err)
		assert.Equal(t, params.OutcomeServiceURL, service.ServiceURL)
		assert.Equal(t, params.ConsumerKey, service.ConsumerKey)
		assert.Nil(t, service.InstanceGUID)
	})

	t.Run("backfill instance guid", func(t *testing.T) {
		dbs := newDB(t)
		s := New(dbs)

		require.Nil(t, s.RegisterIfGraded(ctx, gradedLaunch(), user))

		params := gradedLaunch()
		params.InstanceGUID = "guid-1"
		require.Nil(t, s.RegisterIfGraded(ctx, params, user))

		// a later guid never overwrites the recorded one
		params.InstanceGUID = "guid-2"
		require.Nil(t, s.RegisterIfGraded(ctx, params, user))

		var services []*core.OutcomeService
		require.Nil(t, dbs.View().Find(&services).Error)
		require.Len(t, services, 1)
		require.NotNil(t, services[0].InstanceGUID)
		assert.Equal(t, "guid-1", *services[0].InstanceGUID)
	})

	t.Run("same service different consumers", func(t *testing.T) {
		dbs := newDB(t)
		s := New(dbs)

		require.Nil(t, s.RegisterIfGraded(ctx, gradedLaunch(), user))

		params := gradedLaunch()
		params.ConsumerKey = "other_key"
		require.Nil(t, s.RegisterIfGraded(ctx, params, user))

		assert.Equal(t, 2, countRows(t, dbs, &core.OutcomeService{}))
		assert.Equal(t, 2, countRows(t, dbs, &core.GradedAssignment{}))

		assignments, err := s.FindAssignments(ctx, user.ID, params.CourseKey, params.UsageKey)
		require.Nil(t, err)
		assert.Len(t, assignments, 2)
	})

	t.Run("sourcedid of another launch", func(t *testing.T) {
		dbs := newDB(t)
		s := New(dbs)

		require.Nil(t, s.RegisterIfGraded(ctx, gradedLaunch(), user))

		l, hook := test.NewNullLogger()
		logCtx := logger.WithContext(ctx, logrus.NewEntry(l))

		other := &core.User{ID: 43}
		require.Nil(t, s.RegisterIfGraded(logCtx, gradedLaunch(), other))

		assert.Equal(t, 1, countRows(t, dbs, &core.GradedAssignment{}))
		assignments, err := s.FindAssignments(ctx, other.ID, gradedLaunch().CourseKey, gradedLaunch().UsageKey)
		require.Nil(t, err)
		assert.Empty(t, assignments)

		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		assert.EqualValues(t, 43, hook.LastEntry().Data["user_id"])
	})

	t.Run("concurrent launches", func(t *testing.T) {
		dbs := newDB(t)
		s := New(dbs)

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.RegisterIfGraded(ctx, gradedLaunch(), user)
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.Nil(t, err)
		}

		assert.Equal(t, 1, countRows(t, dbs, &core.OutcomeService{}))
		assert.Equal(t, 1, countRows(t, dbs, &core.GradedAssignment{}))
	})
}

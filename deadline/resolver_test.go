package deadline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhelx/grader-core/models"
)

type fakeExtraTime struct {
	byStudent map[int]*models.ExtraTime
	earliest  time.Duration
	latest    time.Duration
}

func (f *fakeExtraTime) GetForStudentAssignment(
	_ context.Context, studentID, _ int,
) (*models.ExtraTime, error) {
	return f.byStudent[studentID], nil
}

func (f *fakeExtraTime) EarliestDeferral(context.Context, int) (time.Duration, error) {
	return f.earliest, nil
}

func (f *fakeExtraTime) LatestExtension(context.Context, int) (time.Duration, error) {
	return f.latest, nil
}

type fakeSubmissions struct {
	counts map[int]int
}

func (f *fakeSubmissions) CountForStudentAssignment(
	_ context.Context, studentID, _ int,
) (int, error) {
	return f.counts[studentID], nil
}

func TestResolverResolveForStudent(t *testing.T) {
	extraTime := &fakeExtraTime{byStudent: map[int]*models.ExtraTime{
		3: {StudentID: 3, AssignmentID: 7, DeferredTime: day(1)},
	}}
	resolver := NewResolver(extraTime, &fakeSubmissions{})

	assignment := testAssignment()
	course := testCourse()

	// Student 3 is deferred; the window has not opened for them at T+12h.
	deferred := &models.User{ID: 3, Role: models.RoleStudent}
	res, err := resolver.ResolveForStudent(
		context.Background(), assignment, course, deferred, testStart.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusNotYetOpen, res.Status)

	// Student 4 has no override; the same instant is open for them.
	regular := &models.User{ID: 4, Role: models.RoleStudent}
	res, err = resolver.ResolveForStudent(
		context.Background(), assignment, course, regular, testStart.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, res.Status)
}

func TestResolverCanSubmitCountsPriorAttempts(t *testing.T) {
	resolver := NewResolver(
		&fakeExtraTime{byStudent: map[int]*models.ExtraTime{}},
		&fakeSubmissions{counts: map[int]int{3: 2}},
	)

	assignment := testAssignment()
	maxAttempts := 2
	assignment.MaxAttempts = &maxAttempts
	course := testCourse()
	student := &models.User{ID: 3, Role: models.RoleStudent}

	err := resolver.CanSubmit(
		context.Background(), assignment, course, student, testStart.Add(day(5)))
	assert.Error(t, err)
}

func TestResolverAggregateDates(t *testing.T) {
	resolver := NewResolver(
		&fakeExtraTime{earliest: 0, latest: day(3)},
		&fakeSubmissions{},
	)
	assignment := testAssignment()

	earliest, err := resolver.EarliestAvailableDate(context.Background(), assignment)
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.True(t, earliest.Equal(testStart))

	latest, err := resolver.LatestDueDate(context.Background(), assignment)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(testStart.Add(day(13))))

	// No dates, no aggregates.
	assignment.AvailableDate = nil
	assignment.DueDate = nil
	earliest, err = resolver.EarliestAvailableDate(context.Background(), assignment)
	require.NoError(t, err)
	assert.Nil(t, earliest)
	latest, err = resolver.LatestDueDate(context.Background(), assignment)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

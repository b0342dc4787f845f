package receiptimport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/restoledger/backend/internal/domain/receipt"
)

type mockDayRunner struct {
	mock.Mock
}

func (m *mockDayRunner) ImportDay(ctx context.Context, day time.Time) (receipt.ImportResult, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(receipt.ImportResult), args.Error(1)
}

func dayN(n int) time.Time { return testDay.AddDate(0, 0, n) }

func TestRangeImporter_ImportsDaysInOrder(t *testing.T) {
	runner := new(mockDayRunner)
	for i := 0; i < 3; i++ {
		runner.On("ImportDay", mock.Anything, dayN(i)).Return(receipt.ImportResult{Date: dayN(i), Created: i + 1}, nil).Once()
	}

	results, err := NewRangeImporter(runner, PolicyAbort, nil).ImportRange(context.Background(), dayN(0), dayN(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, dayN(i), r.Date)
	}
	created, _, _ := receipt.Totals(results)
	assert.Equal(t, 6, created)
	runner.AssertExpectations(t)
}

func TestRangeImporter_EmptyAndInvalidRanges(t *testing.T) {
	runner := new(mockDayRunner)
	imp := NewRangeImporter(runner, "", nil)
	assert.Equal(t, PolicyAbort, imp.Policy())

	results, err := imp.ImportRange(context.Background(), dayN(0), dayN(0))
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = imp.ImportRange(context.Background(), dayN(2), dayN(0))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	runner.AssertNotCalled(t, "ImportDay", mock.Anything, mock.Anything)
}

func TestRangeImporter_AbortPolicy(t *testing.T) {
	boom := &StageError{Stage: receipt.StageQueryItemsAndMerge, Date: dayN(1), Err: errors.New("timeout")}
	runner := new(mockDayRunner)
	runner.On("ImportDay", mock.Anything, dayN(0)).Return(receipt.ImportResult{Date: dayN(0), Created: 2}, nil)
	runner.On("ImportDay", mock.Anything, dayN(1)).Return(receipt.ImportResult{Date: dayN(1)}, boom)

	results, err := NewRangeImporter(runner, PolicyAbort, nil).ImportRange(context.Background(), dayN(0), dayN(4))
	assert.ErrorIs(t, err, boom)
	require.Len(t, results, 1)
	assert.Equal(t, dayN(0), results[0].Date)
	runner.AssertNotCalled(t, "ImportDay", mock.Anything, dayN(2))
	runner.AssertNumberOfCalls(t, "ImportDay", 2)
}

func TestRangeImporter_ContinuePolicy(t *testing.T) {
	boom := &StageError{Stage: receipt.StagePersist, Date: dayN(1), Err: errors.New("deadlock")}
	runner := new(mockDayRunner)
	runner.On("ImportDay", mock.Anything, dayN(0)).Return(receipt.ImportResult{Date: dayN(0), Created: 1}, nil)
	runner.On("ImportDay", mock.Anything, dayN(1)).Return(receipt.ImportResult{Date: dayN(1)}, boom)
	runner.On("ImportDay", mock.Anything, dayN(2)).Return(receipt.ImportResult{Date: dayN(2), Updated: 3}, nil)

	imp := NewRangeImporter(runner, PolicyAbort, nil)
	results, err := imp.ImportRangeWithPolicy(context.Background(), dayN(0), dayN(3), PolicyContinue)
	require.Error(t, err)

	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, []time.Time{dayN(1)}, rangeErr.FailedDates())
	assert.ErrorIs(t, err, boom)

	require.Len(t, results, 3)
	assert.True(t, results[1].Failed())
	assert.False(t, results[2].Failed())
	_, updated, _ := receipt.Totals(results)
	assert.Equal(t, 3, updated)
}

func TestRangeImporter_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := new(mockDayRunner)
	runner.On("ImportDay", mock.Anything, dayN(0)).Return(receipt.ImportResult{Date: dayN(0)}, nil).Run(func(mock.Arguments) { cancel() })

	results, err := NewRangeImporter(runner, PolicyContinue, nil).ImportRange(ctx, dayN(0), dayN(5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("continue")
	require.NoError(t, err)
	assert.Equal(t, PolicyContinue, p)

	p, err = ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParseFailurePolicy("retry")
	assert.ErrorIs(t, err, ErrInvalidFailurePolicy)
}

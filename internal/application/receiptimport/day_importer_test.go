package receiptimport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/tests/testutil"
)

func dayFixture() *testutil.FakeOlapClient {
	c := testutil.NewFakeOlapClient()
	c.Rows[testutil.KindHeaders] = []olap.Row{
		headerRow("42", "cash", "1500"),
		headerRow("42", "card", "500"),
		with(headerRow("43", "cash", "0"), olap.ColStorned, olap.StornedTrue, olap.ColReturnSum, num("500")),
	}
	c.Rows[testutil.KindItems] = []olap.Row{
		itemRow("42", "d1", "Soup", "", "1", "1200"),
		itemRow("42", "d2", "Tea", "", "2", "800"),
		with(itemRow("43", "d9", "Pie", "", "1", "0"), olap.ColStorned, olap.StornedTrue, olap.ColReturnSum, num("500")),
	}
	c.Rows[testutil.KindReturns] = []olap.Row{
		{olap.ColOrderNum: num("43"), olap.ColStorned: olap.StornedTrue, olap.ColSourceOrderNum: num("777"), olap.ColReturnSum: num("500")},
	}
	c.Sources["777"] = testutil.SourceRows{
		Headers: []olap.Row{with(headerRow("777", "card", "500"), olap.ColOpenDate, "2025-01-10T00:00:00")},
		Items:   []olap.Row{itemRow("777", "d9", "Pie", "", "1", "500")},
	}
	return c
}

func newImporter(c olap.Client, repo receipt.ReceiptRepository, opts Options) *DayImporter {
	return NewDayImporter(c, repo, testutil.NewMemoryKVRepository(), opts, nil)
}

func TestDayImporter_EndToEnd(t *testing.T) {
	repo := testutil.NewMemoryReceiptRepository()
	imp := newImporter(dayFixture(), repo, DefaultOptions())

	res, err := imp.ImportDay(context.Background(), testDay.Add(15*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, testDay, res.Date)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Backfilled)
	assert.False(t, res.Degraded())

	r, err := repo.FindByKey(context.Background(), "42", testDay)
	require.NoError(t, err)
	assert.True(t, dec("2000").Equal(r.Net), "net = %s", r.Net)
	assert.Equal(t, []string{"card", "cash"}, r.PayTypes)
	require.Len(t, r.Items, 2)
	assert.Equal(t, 1, r.Items[0].LineNo)
	assert.Equal(t, "Soup", r.Items[0].DishName)

	ret, err := repo.FindByKey(context.Background(), "43", testDay)
	require.NoError(t, err)
	assert.True(t, ret.IsReturn)
	assert.True(t, dec("500").Equal(ret.Net))
	assert.True(t, dec("500").Equal(ret.ReturnSum))
}

func TestDayImporter_StagesRecorded(t *testing.T) {
	imp := newImporter(dayFixture(), testutil.NewMemoryReceiptRepository(), DefaultOptions())
	res, err := imp.ImportDay(context.Background(), testDay)
	require.NoError(t, err)

	var stages []receipt.Stage
	for _, s := range res.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []receipt.Stage{
		receipt.StageQueryHeaders,
		receipt.StageMerge,
		receipt.StageResolveReturnsAndBackfill,
		receipt.StageQueryItemsAndMerge,
		receipt.StageDiagnosticDump,
		receipt.StagePersist,
	}, stages)
	assert.Equal(t, receipt.StageSkipped, res.Stages[4].Status)
}

func TestDayImporter_Idempotent(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(map[bool]string{true: "atomic", false: "two writes"}[atomic], func(t *testing.T) {
			ctx := context.Background()
			repo := testutil.NewMemoryReceiptRepository()
			opts := DefaultOptions()
			opts.AtomicPersist = atomic
			imp := newImporter(dayFixture(), repo, opts)

			first, err := imp.ImportDay(ctx, testDay)
			require.NoError(t, err)
			before, _ := repo.FindByKey(ctx, "42", testDay)

			second, err := imp.ImportDay(ctx, testDay)
			require.NoError(t, err)
			after, _ := repo.FindByKey(ctx, "42", testDay)

			assert.Equal(t, 2, first.Created)
			assert.Equal(t, 0, second.Created)
			assert.Equal(t, 2, second.Updated)
			assert.Equal(t, 0, second.Backfilled)
			assert.Equal(t, 3, repo.Count())

			assert.Equal(t, before.ID, after.ID)
			assert.True(t, before.Net.Equal(after.Net))
			require.Len(t, after.Items, len(before.Items))
			for i := range before.Items {
				assert.Equal(t, before.Items[i].DishID, after.Items[i].DishID)
				assert.True(t, before.Items[i].Net.Equal(after.Items[i].Net))
				assert.Equal(t, before.Items[i].LineNo, after.Items[i].LineNo)
			}
		})
	}
}

func TestDayImporter_BackfillsReturnSource(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemoryReceiptRepository()
	client := dayFixture()
	imp := newImporter(client, repo, DefaultOptions())

	_, err := imp.ImportDay(ctx, testDay)
	require.NoError(t, err)

	src, err := repo.FindByKey(ctx, "777", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(src.Net))
	require.Len(t, src.Items, 1)
	assert.Equal(t, "Pie", src.Items[0].DishName)

	var sourceHeaders olap.Query
	for _, q := range client.Queries() {
		if testutil.ClassifyQuery(q) == testutil.KindSourceHeaders {
			sourceHeaders = q
		}
	}
	require.NotEmpty(t, sourceHeaders.Filters)
	assert.Equal(t, testDay.AddDate(0, 0, -30), sourceHeaders.Filters[0].From)
	assert.Equal(t, testDay, sourceHeaders.Filters[0].To)
	for _, f := range sourceHeaders.Filters {
		assert.NotEqual(t, olap.ColOrderDeleted, f.Column, "source lookup must ignore cancellation filters")
	}
}

func TestDayImporter_SourceOutsideLookbackDegrades(t *testing.T) {
	repo := testutil.NewMemoryReceiptRepository()
	opts := DefaultOptions()
	opts.ReturnSourceLookbackDays = 3
	imp := newImporter(dayFixture(), repo, opts)

	res, err := imp.ImportDay(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Backfilled)
	assert.True(t, res.Degraded())
	assert.Equal(t, receipt.StageDegraded, res.Stages[2].Status)
	assert.Contains(t, res.Stages[2].Error, ErrSourceOrderNotFound.Error())
	assert.Equal(t, 2, repo.Count())
}

func TestDayImporter_BackfillSkipsKnownOrders(t *testing.T) {
	ctx := context.Background()
	client := dayFixture()
	client.Rows[testutil.KindReturns] = append(client.Rows[testutil.KindReturns],
		olap.Row{olap.ColOrderNum: num("43"), olap.ColStorned: olap.StornedTrue, olap.ColSourceOrderNum: num("42")},
	)
	imp := newImporter(client, testutil.NewMemoryReceiptRepository(), DefaultOptions())

	res, err := imp.ImportDay(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Backfilled)
	assert.Equal(t, 2, client.CountKind(testutil.KindSourceHeaders)+client.CountKind(testutil.KindSourceItems))
}

func TestDayImporter_ItemReplacementShrinks(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemoryReceiptRepository()
	client := dayFixture()
	imp := newImporter(client, repo, DefaultOptions())

	_, err := imp.ImportDay(ctx, testDay)
	require.NoError(t, err)

	client.Rows[testutil.KindItems] = []olap.Row{itemRow("42", "d2", "Tea", "", "2", "800")}
	_, err = imp.ImportDay(ctx, testDay)
	require.NoError(t, err)

	r, err := repo.FindByKey(ctx, "42", testDay)
	require.NoError(t, err)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Tea", r.Items[0].DishName)
	assert.Equal(t, 1, r.Items[0].LineNo)
}

func TestDayImporter_DegradedStages(t *testing.T) {
	boom := errors.New("upstream unavailable")

	t.Run("deleted extract", func(t *testing.T) {
		client := dayFixture()
		client.Errors[testutil.KindDeleted] = boom
		res, err := newImporter(client, testutil.NewMemoryReceiptRepository(), DefaultOptions()).ImportDay(context.Background(), testDay)
		require.NoError(t, err)
		assert.True(t, res.Degraded())
		assert.Equal(t, receipt.StageDegraded, res.Stages[0].Status)
		assert.Contains(t, res.Stages[0].Error, "upstream unavailable")
		assert.Equal(t, 2, res.Created)
	})

	t.Run("returns extract", func(t *testing.T) {
		repo := testutil.NewMemoryReceiptRepository()
		client := dayFixture()
		client.Errors[testutil.KindReturns] = boom
		res, err := newImporter(client, repo, DefaultOptions()).ImportDay(context.Background(), testDay)
		require.NoError(t, err)
		assert.True(t, res.Degraded())
		assert.Equal(t, 0, res.Backfilled)
		assert.Equal(t, 2, repo.Count())
	})

	t.Run("source backfill", func(t *testing.T) {
		client := dayFixture()
		client.Errors[testutil.KindSourceHeaders] = boom
		res, err := newImporter(client, testutil.NewMemoryReceiptRepository(), DefaultOptions()).ImportDay(context.Background(), testDay)
		require.NoError(t, err)
		assert.True(t, res.Degraded())
		assert.Equal(t, 2, res.Created)
	})

	t.Run("source missing upstream", func(t *testing.T) {
		client := dayFixture()
		delete(client.Sources, "777")
		res, err := newImporter(client, testutil.NewMemoryReceiptRepository(), DefaultOptions()).ImportDay(context.Background(), testDay)
		require.NoError(t, err)
		require.True(t, res.Degraded())
		assert.Contains(t, res.Stages[2].Error, ErrSourceOrderNotFound.Error())
	})

	t.Run("diagnostic dump", func(t *testing.T) {
		client := dayFixture()
		client.ColumnsErr = boom
		opts := DefaultOptions()
		opts.DiagnosticDumpEnabled = true
		res, err := newImporter(client, testutil.NewMemoryReceiptRepository(), opts).ImportDay(context.Background(), testDay)
		require.NoError(t, err)
		assert.Equal(t, receipt.StageDegraded, res.Stages[4].Status)
		assert.Equal(t, 2, res.Created)
	})
}

func TestDayImporter_FatalStages(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name  string
		setup func(c *testutil.FakeOlapClient, r *testutil.MemoryReceiptRepository)
		stage receipt.Stage
	}{
		{"headers", func(c *testutil.FakeOlapClient, _ *testutil.MemoryReceiptRepository) {
			c.Errors[testutil.KindHeaders] = boom
		}, receipt.StageQueryHeaders},
		{"items", func(c *testutil.FakeOlapClient, _ *testutil.MemoryReceiptRepository) {
			c.Errors[testutil.KindItems] = boom
		}, receipt.StageQueryItemsAndMerge},
		{"persist", func(_ *testutil.FakeOlapClient, r *testutil.MemoryReceiptRepository) {
			r.FailOrder, r.FailErr = "43", boom
		}, receipt.StagePersist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := dayFixture()
			repo := testutil.NewMemoryReceiptRepository()
			tt.setup(client, repo)

			res, err := newImporter(client, repo, DefaultOptions()).ImportDay(context.Background(), testDay)
			require.Error(t, err)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.Equal(t, testDay, stageErr.Date)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), "2025-01-15")
			assert.Equal(t, err, res.Err)
		})
	}
}

func TestDayImporter_DiagnosticDump(t *testing.T) {
	client := dayFixture()
	client.ColumnSet = map[string]olap.ColumnInfo{
		olap.ColOrderNum:      {Name: olap.ColOrderNum, GroupingAllowed: true},
		olap.ColDiscountedSum: {Name: olap.ColDiscountedSum, AggregationAllowed: true},
		olap.ColWaiter:        {Name: olap.ColWaiter, GroupingAllowed: true},
	}
	client.Diagnostic = func(q olap.Query) []olap.Row {
		if len(q.Aggregates) > 0 {
			return []olap.Row{
				{olap.ColOrderNum: num("42"), olap.ColDishID: "d1", olap.ColDiscountedSum: num("1200")},
				{olap.ColOrderNum: num("42"), olap.ColDishID: "d1", olap.ColDiscountedSum: num("1200")},
			}
		}
		return []olap.Row{{olap.ColOrderNum: num("42"), olap.ColWaiter: "Anna"}}
	}
	kv := testutil.NewMemoryKVRepository()
	opts := DefaultOptions()
	opts.DiagnosticDumpEnabled = true
	imp := NewDayImporter(client, testutil.NewMemoryReceiptRepository(), kv, opts, nil)

	res, err := imp.ImportDay(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, receipt.StageOK, res.Stages[4].Status)

	cells := kv.Days[testDay]
	require.Len(t, cells, 4)
	byKey := map[string]receipt.OlapRowKV{}
	for _, c := range cells {
		byKey[string(c.Level)+"/"+c.ItemKey+"/"+c.Col] = c
	}
	require.Contains(t, byKey, "RECEIPT//"+olap.ColWaiter)
	assert.Equal(t, "Anna", *byKey["RECEIPT//"+olap.ColWaiter].ValStr)
	require.Contains(t, byKey, "ITEM/d1/"+olap.ColDiscountedSum)
	assert.True(t, dec("1200").Equal(*byKey["ITEM/d1/"+olap.ColDiscountedSum].ValNum))
	require.Contains(t, byKey, "RECEIPT//"+olap.ColDishID)
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, time.Time) (func(context.Context) error, error) {
	return nil, ErrImportInProgress
}

type countingRecorder struct {
	results []receipt.ImportResult
}

func (r *countingRecorder) RecordDayImport(_ context.Context, res receipt.ImportResult, _ time.Duration) {
	r.results = append(r.results, res)
}

func TestDayImporter_LockHeldElsewhere(t *testing.T) {
	client := dayFixture()
	imp := newImporter(client, testutil.NewMemoryReceiptRepository(), DefaultOptions())
	imp.SetLocker(busyLocker{})
	rec := &countingRecorder{}
	imp.SetRecorder(rec)

	_, err := imp.ImportDay(context.Background(), testDay)
	assert.ErrorIs(t, err, ErrImportInProgress)
	assert.Empty(t, client.Queries())
	require.Len(t, rec.results, 1)
	assert.True(t, rec.results[0].Failed())
}

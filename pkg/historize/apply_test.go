package historize_test

import (
	"context"
	"testing"
	"time"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/canopy-network/salesdw/pkg/conform"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	"github.com/canopy-network/salesdw/pkg/db/memstore"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	day1 = time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2022, time.March, 2, 0, 0, 0, 0, time.UTC)
)

func product(code, price string) models.Product {
	return models.Product{
		ProductCode:          code,
		ProductLine:          "Classic Cars",
		SuggestedRetailPrice: 214,
		PriceEach:            decimal.RequireFromString(price),
	}
}

func TestHistorizeInsertsNewMembersOpenEnded(t *testing.T) {
	table := memstore.NewTable(conform.ProductRules)

	res, err := table.Historize(context.Background(), []models.Product{product("S10_1949", "95.70"), product("S10_4757", "120.00")}, day1)
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
	require.Zero(t, res.Closed)

	versions := table.Versions()
	require.Len(t, versions, 2)
	for _, v := range versions {
		require.True(t, v.IsCurrent)
		require.True(t, v.IsOpen())
		require.Equal(t, day1, v.StartDate)
	}
	require.NotEqual(t, versions[0].SurrogateKey, versions[1].SurrogateKey)
}

func TestHistorizeProductPriceChangeAcrossBatches(t *testing.T) {
	ctx := context.Background()
	table := memstore.NewTable(conform.ProductRules)

	_, err := table.Historize(ctx, []models.Product{product("S10_1949", "95.70")}, day1)
	require.NoError(t, err)

	res, err := table.Historize(ctx, []models.Product{product("S10_1949", "99.00")}, day2)
	require.NoError(t, err)
	require.Equal(t, 1, res.Closed)
	require.Equal(t, 1, res.Inserted)

	versions := table.Versions()
	require.Len(t, versions, 2)

	old, cur := versions[0], versions[1]
	require.False(t, old.IsCurrent)
	require.Equal(t, day1, old.StartDate)
	require.Equal(t, day2, old.EndDate)
	require.True(t, old.Member.PriceEach.Equal(decimal.RequireFromString("95.70")))

	require.True(t, cur.IsCurrent)
	require.Equal(t, day2, cur.StartDate)
	require.Equal(t, models.OpenEndDate, cur.EndDate)
	require.Greater(t, cur.SurrogateKey, old.SurrogateKey)

	// Same batch again: nothing to write.
	res, err = table.Historize(ctx, []models.Product{product("S10_1949", "99.00")}, day2)
	require.NoError(t, err)
	require.Equal(t, 1, res.Unchanged)
	require.Zero(t, res.Inserted)
	require.Len(t, table.Versions(), 2)
}

func TestHistorizeKeepsOneCurrentVersionPerKey(t *testing.T) {
	ctx := context.Background()
	table := memstore.NewTable(conform.ProductRules)

	prices := []string{"10.00", "11.00", "11.00", "12.50", "10.00"}
	for i, p := range prices {
		_, err := table.Historize(ctx, []models.Product{product("S18_1097", p)}, day1.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	current := 0
	for _, v := range table.Versions() {
		require.False(t, v.EndDate.Before(v.StartDate))
		if v.IsCurrent {
			current++
			require.True(t, v.IsOpen())
		} else {
			require.False(t, v.IsOpen())
		}
	}
	require.Equal(t, 1, current)
	require.Len(t, table.Versions(), 4)
}

func TestApplyCloseOutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	table := memstore.NewTable(conform.ProductRules)
	sk, err := table.InsertVersion(ctx, product("S10_1949", "95.70"), day1, models.OpenEndDate)
	require.NoError(t, err)

	plan := conform.Plan[models.Product]{
		Dimension: entities.Products,
		CloseOuts: []conform.CloseOut{{NaturalKey: "S10_1949", SurrogateKey: sk}},
	}

	res, err := historize.Apply(ctx, table, plan, day2)
	require.NoError(t, err)
	require.Equal(t, 1, res.Closed)

	res, err = historize.Apply(ctx, table, plan, day2)
	require.NoError(t, err)
	require.Zero(t, res.Closed)
	require.Equal(t, 1, res.NoOpCloseOut)

	versions := table.Versions()
	require.Len(t, versions, 1)
	require.Equal(t, day2, versions[0].EndDate)
}

func TestApplyMissingCloseOutTargetIsIntegrityViolation(t *testing.T) {
	table := memstore.NewTable(conform.ProductRules)
	plan := conform.Plan[models.Product]{
		Dimension: entities.Products,
		CloseOuts: []conform.CloseOut{{NaturalKey: "S10_1949", SurrogateKey: 77}},
	}

	_, err := historize.Apply(context.Background(), table, plan, day2)
	require.Error(t, err)
	require.True(t, batcherr.IsIntegrityViolation(err))
}

func TestHistorizeTwoCurrentRowsRollsBack(t *testing.T) {
	table := memstore.NewTable(conform.ProductRules)
	for sk, price := range map[int64]string{1: "95.70", 2: "96.00"} {
		table.Put(models.Version[models.Product]{
			SurrogateKey: sk,
			Member:       product("S10_1949", price),
			StartDate:    day1,
			EndDate:      models.OpenEndDate,
			IsCurrent:    true,
		})
	}

	_, err := table.Historize(context.Background(), []models.Product{product("S10_1949", "99.00"), product("S24_2000", "10.00")}, day2)
	require.Error(t, err)
	require.True(t, batcherr.IsIntegrityViolation(err))

	// Nothing from the failed plan is visible.
	require.Len(t, table.Versions(), 2)
	for _, v := range table.Versions() {
		require.True(t, v.IsCurrent)
	}
}

func TestApplyCountsCurrentRowsAtCloseOut(t *testing.T) {
	ctx := context.Background()
	table := memstore.NewTable(conform.ProductRules)
	sk, err := table.InsertVersion(ctx, product("S10_1949", "95.70"), day1, models.OpenEndDate)
	require.NoError(t, err)
	_, err = table.InsertVersion(ctx, product("S10_1949", "96.70"), day1, models.OpenEndDate)
	require.NoError(t, err)

	plan := conform.Plan[models.Product]{
		Dimension: entities.Products,
		CloseOuts: []conform.CloseOut{{NaturalKey: "S10_1949", SurrogateKey: sk}},
	}
	_, err = historize.Apply(ctx, table, plan, day2)

	var iv *batcherr.IntegrityViolationError
	require.ErrorAs(t, err, &iv)
	require.Equal(t, 2, iv.CurrentRows)
	require.Equal(t, "S10_1949", iv.NaturalKey)
}

// recordingTx logs the order of calls made by Apply.
type recordingTx struct {
	calls []string
	next  int64
}

func (r *recordingTx) CountCurrent(context.Context, string) (int, error) {
	r.calls = append(r.calls, "count")
	return 1, nil
}

func (r *recordingTx) CloseCurrent(context.Context, int64, time.Time) (bool, error) {
	r.calls = append(r.calls, "close")
	return true, nil
}

func (r *recordingTx) VersionExists(context.Context, int64) (bool, error) {
	r.calls = append(r.calls, "exists")
	return true, nil
}

func (r *recordingTx) InsertVersion(_ context.Context, _ models.Status, start, end time.Time) (int64, error) {
	r.calls = append(r.calls, "insert")
	r.next++
	return r.next, nil
}

func TestApplyClosesBeforeInserting(t *testing.T) {
	tx := &recordingTx{}
	plan := conform.Plan[models.Status]{
		Dimension: entities.Statuses,
		CloseOuts: []conform.CloseOut{{NaturalKey: "Shipped", SurrogateKey: 1}, {NaturalKey: "On Hold", SurrogateKey: 2}},
		Inserts:   []models.Status{{Status: "Shipped"}, {Status: "On Hold"}, {Status: "Disputed"}},
	}

	res, err := historize.Apply(context.Background(), tx, plan, day2.Add(15*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"count", "close", "count", "close", "insert", "insert", "insert"}, tx.calls)
	require.Equal(t, 2, res.Closed)
	require.Equal(t, 3, res.Inserted)
}

func TestHistorizeRejectsBatchDateBeforeCurrentVersion(t *testing.T) {
	ctx := context.Background()
	table := memstore.NewTable(conform.ProductRules)
	july := time.Date(2022, time.July, 1, 0, 0, 0, 0, time.UTC)
	june := time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := table.Historize(ctx, []models.Product{product("S10_1678", "95.70")}, july)
	require.NoError(t, err)

	_, err = table.Historize(ctx, []models.Product{product("S10_1678", "81.35"), product("S24_2000", "10.00")}, june)
	var iv *batcherr.IntegrityViolationError
	require.ErrorAs(t, err, &iv)
	require.Equal(t, "S10_1678", iv.NaturalKey)

	// Nothing was written, and the surviving version still starts before it ends.
	versions := table.Versions()
	require.Len(t, versions, 1)
	require.True(t, versions[0].IsCurrent)
	require.Equal(t, july, versions[0].StartDate)
	require.False(t, versions[0].EndDate.Before(versions[0].StartDate))
}

func TestApplyChecksCloseOutDatesBeforeWriting(t *testing.T) {
	tx := &recordingTx{}
	plan := conform.Plan[models.Status]{
		Dimension: entities.Statuses,
		CloseOuts: []conform.CloseOut{
			{NaturalKey: "Shipped", SurrogateKey: 1, StartDate: day1},
			{NaturalKey: "On Hold", SurrogateKey: 2, StartDate: day2},
		},
		Inserts: []models.Status{{Status: "Shipped"}, {Status: "On Hold"}},
	}

	_, err := historize.Apply(context.Background(), tx, plan, day1)
	require.True(t, batcherr.IsIntegrityViolation(err))
	require.Empty(t, tx.calls)

	// Closing on the start date itself is allowed.
	_, err = historize.Apply(context.Background(), tx, plan, day2)
	require.NoError(t, err)
}

func TestDateOfTruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2022, time.March, 1, 22, 30, 0, 0, loc)
	require.Equal(t, time.Date(2022, time.March, 2, 0, 0, 0, 0, time.UTC), historize.DateOf(ts))
}

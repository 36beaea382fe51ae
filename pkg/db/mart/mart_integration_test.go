//go:build integration

package mart_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/canopy-network/salesdw/pkg/db/clickhouse"
	"github.com/canopy-network/salesdw/pkg/db/mart"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcClickhouse "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"go.uber.org/zap"
)

var (
	testMart      *mart.DB
	testContainer *tcClickhouse.ClickHouseContainer
)

func TestMain(m *testing.M) {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	ctx := context.Background()
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		exitCode = 1
		return
	}

	if !isDockerAvailable() {
		fmt.Println("Docker not available, skipping integration tests")
		return
	}

	testContainer, err = tcClickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.1",
		tcClickhouse.WithUsername("default"),
		tcClickhouse.WithPassword(""),
	)
	if err != nil {
		logger.Error("Failed to start ClickHouse container", zap.Error(err))
		exitCode = 1
		return
	}
	defer func() {
		terminateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		_ = testContainer.Terminate(terminateCtx)
	}()

	host, err := testContainer.Host(ctx)
	if err != nil {
		exitCode = 1
		return
	}
	port, err := testContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		exitCode = 1
		return
	}
	_ = os.Setenv("CLICKHOUSE_ADDR", fmt.Sprintf("clickhouse://%s:%s?sslmode=disable", host, port.Port()))

	testMart, err = mart.New(ctx, logger, "salesdw_mart_test", clickhouse.GetPoolConfigForComponent("test"))
	if err != nil {
		logger.Error("Failed to open mart", zap.Error(err))
		exitCode = 1
		return
	}
	defer func() { _ = testMart.Close() }()

	exitCode = m.Run()
}

func isDockerAvailable() bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func ptr[T any](v T) *T { return &v }

func countRows(t *testing.T, batchDate time.Time) uint64 {
	t.Helper()
	rows, err := testMart.Query(context.Background(),
		`SELECT count() FROM fact_sales FINAL WHERE batch_date = ?`, batchDate)
	require.NoError(t, err)
	defer rows.Close()

	var n uint64
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&n))
	return n
}

func TestMirrorFactsReplacesBatchPartition(t *testing.T) {
	ctx := context.Background()
	batch := time.Date(2022, 10, 14, 0, 0, 0, 0, time.UTC)

	fact := func(lineID int64) models.FactRow {
		return models.FactRow{
			BatchDate:       batch,
			LineID:          lineID,
			OrderDateFK:     ptr(int32(20220224)),
			ProductFK:       ptr(int64(1)),
			OrderNumber:     10107,
			OrderLineNumber: lineID,
			QuantityOrdered: 30,
			Sales:           decimal.RequireFromString("2871.00"),
		}
	}

	n, err := testMart.MirrorFacts(ctx, batch, []models.FactRow{fact(1), fact(2), fact(3)})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, uint64(3), countRows(t, batch))

	// A rerun of the same batch date replaces the partition rather than adding to it.
	n, err = testMart.MirrorFacts(ctx, batch, []models.FactRow{fact(1)})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, uint64(1), countRows(t, batch))

	rows, err := testMart.Query(ctx,
		`SELECT ship_date_fk, customer_fk FROM fact_sales FINAL WHERE batch_date = ?`, batch)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var shipFK *int32
	var customerFK *int64
	require.NoError(t, rows.Scan(&shipFK, &customerFK))
	require.Nil(t, shipFK)
	require.Nil(t, customerFK)
}

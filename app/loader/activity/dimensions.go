package activity

import (
	"context"
	"fmt"

	"github.com/canopy-network/salesdw/app/loader/types"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/canopy-network/salesdw/pkg/pipeline"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// HistorizeDimension applies the staged members of one dimension. The store commits the whole
// dimension or nothing, so a retry after a transient failure starts from a clean snapshot.
func (ac *Context) HistorizeDimension(ctx context.Context, in types.ActivityHistorizeInput) (types.ActivityHistorizeOutput, error) {
	dim, err := entities.FromString(in.Dimension)
	if err != nil {
		return types.ActivityHistorizeOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_dimension", err)
	}
	batchDate := historize.DateOf(in.BatchDate)

	records, err := ac.Store.StagingRecords(ctx, batchDate)
	if err != nil {
		return types.ActivityHistorizeOutput{}, fmt.Errorf("read staging: %w", err)
	}

	res, err := pipeline.HistorizeDimension(ctx, ac.Store, dim, records, batchDate)
	if err != nil {
		ac.Logger.Error("Dimension load rolled back",
			zap.String("dimension", dim.String()),
			zap.Time("batch_date", batchDate),
			zap.Error(err),
		)
		return types.ActivityHistorizeOutput{}, nonRetryable(err)
	}
	return types.ActivityHistorizeOutput{Result: res}, nil
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractapp "electricity-compare/internal/contracts/application"
	spotapp "electricity-compare/internal/spotprice/application"
)

// Job names.
const (
	JobIngestLatest = "spot-ingest-latest"
	JobAverages     = "spot-averages"
	JobCatalogSync  = "catalog-sync"
)

// LatestIngester fetches the newest day-ahead prices of a region.
type LatestIngester interface {
	IngestLatest(ctx context.Context, region string) (*spotapp.IngestReport, error)
}

// AverageCalculator recomputes every average of a set of regions.
type AverageCalculator interface {
	CalculateAllRegions(ctx context.Context, regions []string) (int, error)
}

// CatalogSyncer refreshes the contract catalog.
type CatalogSyncer interface {
	Sync(ctx context.Context) (*contractapp.SyncReport, error)
}

// IngestLatestJob ingests every region; a failing region does not stop the others.
func IngestLatestJob(schedule string, ingester LatestIngester, regions []string) Job {
	return Job{
		Name:     JobIngestLatest,
		Schedule: schedule,
		Timeout:  10 * time.Minute,
		Run: func(ctx context.Context) error {
			var errs []error
			for _, region := range regions {
				if _, err := ingester.IngestLatest(ctx, region); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", region, err))
				}
			}
			return errors.Join(errs...)
		},
	}
}

// AveragesJob recomputes all averages of every region.
func AveragesJob(schedule string, calculator AverageCalculator, regions []string) Job {
	return Job{
		Name:     JobAverages,
		Schedule: schedule,
		Timeout:  10 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := calculator.CalculateAllRegions(ctx, regions)
			return err
		},
	}
}

// CatalogSyncJob runs a full catalog sync.
func CatalogSyncJob(schedule string, syncer CatalogSyncer) Job {
	return Job{
		Name:     JobCatalogSync,
		Schedule: schedule,
		Timeout:  time.Hour,
		Run: func(ctx context.Context) error {
			_, err := syncer.Sync(ctx)
			return err
		},
	}
}

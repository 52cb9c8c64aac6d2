package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stayhub/internal/app/dto"
)

const snapshotDateLayout = "2006-01-02"

// SnapshotArchive keeps availability reports as JSON objects.
type SnapshotArchive struct {
	Store ObjectStore
	NewID func() string
}

// Save writes the report under availability/<propertyID>/<start>_<end>_<id>.json.
func (a SnapshotArchive) Save(ctx context.Context, report dto.AvailabilityReport) (string, error) {
	if a.Store == nil {
		return "", errors.New("s3: snapshot store is not configured")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("s3: encode snapshot: %w", err)
	}
	return a.Store.Put(ctx, SnapshotKey(report, a.id()), data, "application/json")
}

func SnapshotKey(report dto.AvailabilityReport, id string) string {
	return fmt.Sprintf("availability/%d/%s_%s_%s.json",
		report.PropertyID,
		report.DateRange.StartDate.UTC().Format(snapshotDateLayout),
		report.DateRange.EndDate.UTC().Format(snapshotDateLayout),
		id,
	)
}

func (a SnapshotArchive) id() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

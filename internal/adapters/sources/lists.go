package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zatekoja/facilitycollector/internal/domain/entities"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
)

// readCSV returns the rows of a headed CSV blob as header-keyed maps.
// Header names are matched case-insensitively.
func readCSV(ctx context.Context, store providers.BlobStore, key string, required ...string) ([]map[string]string, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", key, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}
	for _, want := range required {
		found := false
		for _, h := range header {
			if h == want {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: missing column %q", key, want)
		}
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WebsitesFetch reads the "id,url" website list
func WebsitesFetch(store providers.BlobStore, key string) FetchFunc[entities.WebsiteRecord] {
	return func(ctx context.Context) ([]entities.WebsiteRecord, error) {
		rows, err := readCSV(ctx, store, key, "id", "url")
		if err != nil {
			return nil, err
		}
		out := make([]entities.WebsiteRecord, 0, len(rows))
		for _, row := range rows {
			if row["url"] == "" {
				continue
			}
			out = append(out, entities.WebsiteRecord{FacilityID: row["id"], URL: row["url"]})
		}
		return out, nil
	}
}

// WebsiteKey keys websites by the facility id column
func WebsiteKey(r entities.WebsiteRecord) string {
	return r.FacilityID
}

// InclusionFetch reads a single-column "id" list
func InclusionFetch(store providers.BlobStore, key string) FetchFunc[entities.InclusionRecord] {
	return func(ctx context.Context) ([]entities.InclusionRecord, error) {
		rows, err := readCSV(ctx, store, key, "id")
		if err != nil {
			return nil, err
		}
		out := make([]entities.InclusionRecord, 0, len(rows))
		for _, row := range rows {
			out = append(out, entities.InclusionRecord{FacilityID: row["id"]})
		}
		return out, nil
	}
}

// InclusionKey keys list entries by facility id
func InclusionKey(r entities.InclusionRecord) string {
	return r.FacilityID
}

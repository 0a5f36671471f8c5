package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/googleapi"
)

// QualityRow is one exported document quality row
type QualityRow struct {
	BatchID             string         `bigquery:"batch_id"`
	ProcessedAt         time.Time      `bigquery:"processed_at"`
	ModelUsed           string         `bigquery:"model_used"`
	Bucket              string         `bigquery:"bucket"`
	FileKey             string         `bigquery:"file_key"`
	FileName            string         `bigquery:"file_name"`
	FileType            string         `bigquery:"file_type"`
	DocumentType        string         `bigquery:"document_type"`
	Status              string         `bigquery:"status"`
	Error               string         `bigquery:"error"`
	OverallQualityScore float64        `bigquery:"overall_quality_score"`
	RecommendedAction   string         `bigquery:"recommended_action"`
	DuplicateCount      int            `bigquery:"duplicate_count"`
	Dimensions          []DimensionRow `bigquery:"dimensions"`
}

// DimensionRow is a repeated dimension score inside QualityRow
type DimensionRow struct {
	Name     string `bigquery:"name"`
	Score    int    `bigquery:"score"`
	Evidence string `bigquery:"evidence"`
}

// bigqueryExporter implements interfaces.Exporter by streaming rows into a table
type bigqueryExporter struct {
	client    *bigquery.Client
	datasetID string
	table     string
	ensured   bool
}

var _ interfaces.Exporter = (*bigqueryExporter)(nil)

// NewBigQuery creates an exporter writing quality rows to project.dataset.table
func NewBigQuery(ctx context.Context, projectID, datasetID, table string) (interfaces.Exporter, error) {
	if datasetID == "" || table == "" {
		return nil, goerr.New("BigQuery dataset and table are required",
			goerr.Value("dataset", datasetID),
			goerr.Value("table", table))
	}

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	return &bigqueryExporter{
		client:    client,
		datasetID: datasetID,
		table:     table,
	}, nil
}

// ExportRecords inserts one row per manifest file. The table is created from
// the QualityRow schema on first use when it does not exist.
func (x *bigqueryExporter) ExportRecords(ctx context.Context, manifest *model.BatchManifest) error {
	rows := QualityRows(manifest)
	if len(rows) == 0 {
		return nil
	}

	tbl := x.client.Dataset(x.datasetID).Table(x.table)
	if !x.ensured {
		if err := ensureTable(ctx, tbl); err != nil {
			return err
		}
		x.ensured = true
	}

	if err := tbl.Inserter().Put(ctx, rows); err != nil {
		return goerr.Wrap(err, "failed to insert quality rows",
			goerr.Value("dataset", x.datasetID),
			goerr.Value("table", x.table),
			goerr.Value("rows", len(rows)))
	}

	logging.From(ctx).Debug("exported quality rows", "table", x.table, "rows", len(rows))
	return nil
}

func ensureTable(ctx context.Context, tbl *bigquery.Table) error {
	_, err := tbl.Metadata(ctx)
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return goerr.Wrap(err, "failed to get table metadata", goerr.Value("table", tbl.TableID))
	}

	schema, err := bigquery.InferSchema(QualityRow{})
	if err != nil {
		return goerr.Wrap(err, "failed to infer quality row schema")
	}

	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Field: "processed_at",
		},
	}
	if err := tbl.Create(ctx, meta); err != nil {
		return goerr.Wrap(err, "failed to create table", goerr.Value("table", tbl.TableID))
	}
	return nil
}

// QualityRows flattens a manifest into exportable rows
func QualityRows(manifest *model.BatchManifest) []*QualityRow {
	if manifest == nil {
		return nil
	}

	rows := make([]*QualityRow, 0, len(manifest.Files))
	for _, f := range manifest.Files {
		if f == nil {
			continue
		}
		row := &QualityRow{
			BatchID:             string(manifest.ID),
			ProcessedAt:         manifest.ProcessedAt,
			ModelUsed:           manifest.ModelUsed,
			Bucket:              f.Bucket,
			FileKey:             f.FileKey,
			FileName:            f.FileName,
			FileType:            f.FileType,
			DocumentType:        f.DocumentType,
			Status:              string(f.Status),
			Error:               f.Error,
			OverallQualityScore: f.OverallQualityScore,
			RecommendedAction:   strings.ToUpper(string(f.RecommendedAction)),
			DuplicateCount:      len(f.PotentialDuplicates),
		}
		for _, d := range model.Dimensions {
			score, ok := f.Dimensions[d]
			if !ok {
				continue
			}
			row.Dimensions = append(row.Dimensions, DimensionRow{
				Name:     string(d),
				Score:    score.Score,
				Evidence: score.Evidence,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

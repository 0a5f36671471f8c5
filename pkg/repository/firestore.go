package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionScans = "scans"

// Firestore keeps the scan history in a Firestore collection
type Firestore struct {
	client *firestore.Client
}

var _ interfaces.ScanRepository = (*Firestore)(nil)

// NewFirestore creates a scan history backed by the given Firestore database
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("firestore project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.Value("project_id", projectID),
			goerr.Value("database_id", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) PutScan(ctx context.Context, scan *model.ScanSummary) error {
	if scan == nil || scan.ID == "" {
		return goerr.New("scan ID is required")
	}

	if _, err := r.client.Collection(collectionScans).Doc(string(scan.ID)).Set(ctx, scan); err != nil {
		return goerr.Wrap(err, "failed to put scan", goerr.Value("id", scan.ID))
	}
	return nil
}

// GetScan returns the scan with id, or an error wrapping model.ErrNotFound
func (r *Firestore) GetScan(ctx context.Context, id model.BatchID) (*model.ScanSummary, error) {
	doc, err := r.client.Collection(collectionScans).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "scan not found", goerr.Value("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get scan", goerr.Value("id", id))
	}

	var scan model.ScanSummary
	if err := doc.DataTo(&scan); err != nil {
		return nil, goerr.Wrap(err, "failed to decode scan", goerr.Value("id", id))
	}
	return &scan, nil
}

// ListScans returns scans ordered by processing time, newest first
func (r *Firestore) ListScans(ctx context.Context, offset, limit int) ([]*model.ScanSummary, error) {
	query := r.client.Collection(collectionScans).OrderBy("processed_at", firestore.Desc)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	scans := []*model.ScanSummary{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate scans")
		}

		var scan model.ScanSummary
		if err := doc.DataTo(&scan); err != nil {
			return nil, goerr.Wrap(err, "failed to decode scan", goerr.Value("doc_id", doc.Ref.ID))
		}
		scans = append(scans, &scan)
	}

	return scans, nil
}

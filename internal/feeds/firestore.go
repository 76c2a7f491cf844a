package feeds

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/normalize"
)

// Firestore collections backing the three capture paths.
const (
	collectionManual   = "expenses"
	collectionScanned  = "receipts"
	collectionImported = "imported_transactions"
)

// Store wraps the Firestore client backing all three source feeds and the
// change notification listeners.
type Store struct {
	client *firestore.Client
	log    zerolog.Logger
}

// NewStore initializes a Firebase app and connects to Firestore.
// credentialsFile may be empty to use application default credentials;
// projectID may be empty to use the project from the credentials.
func NewStore(ctx context.Context, credentialsFile, projectID string, log zerolog.Logger) (*Store, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("feeds.NewStore: initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("feeds.NewStore: initialize firestore client: %w", err)
	}

	return &Store{client: client, log: log}, nil
}

// Close releases the underlying Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Feeds returns the three source feeds in ingestion order.
func (s *Store) Feeds() []Feed {
	return []Feed{
		&collectionFeed{store: s, collection: collectionManual, origin: domain.OriginManual},
		&collectionFeed{store: s, collection: collectionScanned, origin: domain.OriginScanned},
		&collectionFeed{store: s, collection: collectionImported, origin: domain.OriginImported},
	}
}

// Watch starts a snapshot listener per collection and invokes notify whenever
// any of them reports a change. Listeners stop when ctx is canceled.
func (s *Store) Watch(ctx context.Context, notify func()) {
	for _, collection := range []string{collectionManual, collectionScanned, collectionImported} {
		go s.watchCollection(ctx, collection, notify)
	}
}

func (s *Store) watchCollection(ctx context.Context, collection string, notify func()) {
	iter := s.client.Collection(collection).Snapshots(ctx)
	defer iter.Stop()

	for {
		_, err := iter.Next()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error().Err(err).Str("collection", collection).
					Msg("Snapshot listener stopped")
			}
			return
		}
		notify()
	}
}

// collectionFeed reads one Firestore collection as a Feed.
type collectionFeed struct {
	store      *Store
	collection string
	origin     domain.Origin
}

// Origin implements the Feed interface.
func (f *collectionFeed) Origin() domain.Origin {
	return f.origin
}

// Query implements the Feed interface. It tries the created_at-ordered query
// first and falls back to the unordered one when the required index is
// missing, matching how the store is actually deployed.
func (f *collectionFeed) Query(ctx context.Context, userID string) ([]normalize.RawRecord, error) {
	base := f.store.client.Collection(f.collection).Where("user_id", "==", userID)

	docs, err := base.OrderBy("created_at", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		f.store.log.Debug().Err(err).Str("collection", f.collection).
			Msg("Ordered query failed, falling back to simple query")
		docs, err = base.Documents(ctx).GetAll()
		if err != nil {
			return nil, fmt.Errorf("collectionFeed.Query: %s: %w", f.collection, err)
		}
	}

	records := make([]normalize.RawRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, rawFromDoc(doc.Ref.ID, f.origin, doc.Data()))
	}
	return records, nil
}

// SaveScanned writes an extracted receipt record into the receipts collection
// under the given user. The snapshot listener picks the write up like any
// other change, so saving is enough to trigger a recompute.
func (s *Store) SaveScanned(ctx context.Context, userID string, rec normalize.RawRecord) (string, error) {
	fields := make(map[string]interface{}, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		fields[k] = v
	}
	fields["user_id"] = userID

	if rec.ID != "" {
		if _, err := s.client.Collection(collectionScanned).Doc(rec.ID).Set(ctx, fields); err != nil {
			return "", fmt.Errorf("feeds.SaveScanned: %w", err)
		}
		return rec.ID, nil
	}

	ref, _, err := s.client.Collection(collectionScanned).Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("feeds.SaveScanned: %w", err)
	}
	return ref.ID, nil
}

// rawFromDoc maps a stored document into a RawRecord. The legacy store keeps
// signed amounts on manual and imported records; the sign is folded into an
// explicit type field here so the normalizer sees only non-negative
// magnitudes.
func rawFromDoc(id string, origin domain.Origin, fields map[string]interface{}) normalize.RawRecord {
	if origin != domain.OriginScanned {
		if amount, ok := fields["amount"].(float64); ok && amount < 0 {
			fields["amount"] = -amount
			fields["type"] = string(domain.KindExpense)
		}
	}
	return normalize.RawRecord{ID: id, Origin: origin, Fields: fields}
}

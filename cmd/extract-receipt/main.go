// extract-receipt runs receipt extraction on an uploaded image and prints the
// structured result. With -save it also writes the scanned record into the
// backing store, where the change listener picks it up for recomputation.
//
// Usage:
//
//	extract-receipt -uri gs://bucket/users/u1/receipt.jpg -user u1 -save
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/finsight/internal/config"
	"github.com/dvloznov/finsight/internal/extraction"
	"github.com/dvloznov/finsight/internal/feeds"
	"github.com/dvloznov/finsight/internal/logger"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg := config.Load(log)

	var (
		uri    = flag.String("uri", "", "Receipt image: gs://bucket/object, or an object name in GCS_BUCKET")
		userID = flag.String("user", "", "User the receipt belongs to")
		mime   = flag.String("mime", "image/jpeg", "MIME type of the image")
		save   = flag.Bool("save", false, "Save the extracted record to the receipts collection")
	)
	flag.Parse()

	if *uri == "" || *userID == "" {
		log.Fatal().Msg("-uri and -user are required")
	}

	target := *uri
	if !strings.HasPrefix(target, "gs://") {
		if cfg.GCSBucket == "" {
			log.Fatal().Msg("GCS_BUCKET must be set to use a bare object name")
		}
		target = "gs://" + cfg.GCSBucket + "/" + target
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	extractor := extraction.NewExtractor(cfg.ExtractionModel, log)

	receipt, err := extractor.ExtractFromGCS(ctx, target, *mime)
	if err != nil {
		log.Fatal().Err(err).Str("uri", target).Msg("Extraction failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(receipt); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}

	if !*save {
		return
	}

	store, err := feeds.NewStore(ctx, cfg.FirebaseCredentialsFile, cfg.FirestoreProjectID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	defer store.Close()

	rec := extraction.ToRawRecord(receipt, "", time.Now())
	id, err := store.SaveScanned(ctx, *userID, rec)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save scanned record")
	}

	log.Info().
		Str("record_id", id).
		Str("user_id", *userID).
		Str("merchant", receipt.MerchantName).
		Msg("Saved scanned record")
}

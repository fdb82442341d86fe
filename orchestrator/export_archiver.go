// Copyright 2025 AgentDesk
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"agentdesk/platform/orchestrator/compliance"
	"agentdesk/platform/shared/logger"
)

// s3PutAPI is the slice of the S3 client the archiver needs.
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ExportArchiver uploads compliance export documents to an S3 bucket
// for long-term retention.
type ExportArchiver struct {
	client s3PutAPI
	bucket string
	log    *logger.Logger
}

// NewExportArchiver builds an archiver against the given bucket using
// the default AWS credential chain.
func NewExportArchiver(ctx context.Context, bucket, region string, log *logger.Logger) (*ExportArchiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("export bucket is required")
	}
	if log == nil {
		log = logger.New("export-archiver")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ExportArchiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		log:    log,
	}, nil
}

// Archive uploads the export document as JSON and returns the object
// key it was stored under.
func (a *ExportArchiver) Archive(ctx context.Context, doc *compliance.ExportDocument) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export document: %w", err)
	}

	key := exportObjectKey(doc.ExportMetadata, time.Now().UTC())

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export to s3://%s/%s: %w", a.bucket, key, err)
	}

	a.log.Info("", "", "Archived compliance export", map[string]interface{}{
		"bucket":       a.bucket,
		"key":          key,
		"total_events": doc.ExportMetadata.TotalEvents,
		"size_bytes":   len(data),
	})
	return key, nil
}

// exportObjectKey builds a date-partitioned key so exports are easy
// to locate and lifecycle rules can expire them by prefix.
func exportObjectKey(meta compliance.ExportMetadata, now time.Time) string {
	return fmt.Sprintf("compliance-exports/%s/export_%s_%s_%s.json",
		now.Format("2006/01/02"),
		datePart(meta.StartDate), datePart(meta.EndDate),
		now.Format("150405"))
}

// datePart reduces an RFC3339 timestamp to its calendar date.
func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

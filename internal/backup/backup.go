// Package backup copies the content document and the lead list to object storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/leads"
)

const timestampLayout = "20060102T150405Z"

// Archiver stores one object.
type Archiver interface {
	Put(ctx context.Context, object string, data []byte) error
}

// GCSArchiver writes objects into a Cloud Storage bucket.
type GCSArchiver struct {
	client *gcs.Client
	bucket string
}

// NewGCSArchiver constructs an archiver for bucket.
func NewGCSArchiver(client *gcs.Client, bucket string) (*GCSArchiver, error) {
	if client == nil {
		return nil, errors.New("backup: storage client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("backup: bucket is required")
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

// Put uploads data as a JSON object.
func (a *GCSArchiver) Put(ctx context.Context, object string, data []byte) error {
	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("backup: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("backup: close %s: %w", object, err)
	}
	return nil
}

// Result lists the objects written by one Run.
type Result struct {
	Objects []string
}

// Runner exports both repositories and hands the files to an Archiver.
type Runner struct {
	Content  *content.Repository
	Leads    *leads.Repository
	Archiver Archiver
	Prefix   string
	Now      func() time.Time
}

// Run writes <prefix>/<timestamp>/content.export.json and leads.export.json.
// Content comes from Load, so a missing stored document backs up the default.
func (r Runner) Run(ctx context.Context) (Result, error) {
	if r.Content == nil || r.Leads == nil || r.Archiver == nil {
		return Result{}, errors.New("backup: content, leads and archiver are required")
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	dir := path.Join(strings.Trim(r.Prefix, "/"), now().UTC().Format(timestampLayout))

	doc, _ := r.Content.Load(ctx)
	contentJSON, err := content.Export(doc)
	if err != nil {
		return Result{}, fmt.Errorf("backup: encode content: %w", err)
	}
	leadsJSON, err := r.Leads.ExportAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("backup: read leads: %w", err)
	}

	var res Result
	for _, f := range []struct {
		name string
		data []byte
	}{
		{content.ExportFilename, contentJSON},
		{leads.ExportFilename, leadsJSON},
	} {
		object := path.Join(dir, f.name)
		if err := r.Archiver.Put(ctx, object, f.data); err != nil {
			return res, err
		}
		res.Objects = append(res.Objects, object)
	}
	return res, nil
}

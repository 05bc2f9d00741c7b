/*
Copyright © 2021 the Heliocat authors.
This file is part of Heliocat.

Heliocat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Heliocat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Heliocat.  If not, see <http://www.gnu.org/licenses/>.
*/

package heliocatutil

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"

	"github.com/spacephys/heliocat"
)

// IsBlob returns whether the given path represents a blob
// (i.e., if it starts with 'gs://', 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// writeOutput writes a table as CSV to the given location: standard
// output when path is empty, a blob location when path has a blob scheme,
// and a local file otherwise.
func writeOutput(ctx context.Context, path string, table *heliocat.Table) error {
	if path == "" {
		return writeCSV(os.Stdout, table)
	}
	if IsBlob(path) {
		return writeBlob(ctx, path, table)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heliocat: creating output file: %v", err)
	}
	if err := writeCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeBlob(ctx context.Context, path string, table *heliocat.Table) error {
	u, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("heliocat: parsing output location: %v", err)
	}
	bucket, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return err
	}
	w, err := bucket.NewWriter(ctx, strings.TrimPrefix(u.Path, "/"), nil)
	if err != nil {
		return err
	}
	if err := writeCSV(w, table); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// writeCSV writes a table as CSV with a Time column first.
func writeCSV(w io.Writer, table *heliocat.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Time"}, table.Columns...)); err != nil {
		return err
	}
	record := make([]string, len(table.Columns)+1)
	for i := 0; i < table.Rows(); i++ {
		record[0] = table.Time[i].UTC().Format(time.RFC3339)
		for j := range table.Columns {
			record[j+1] = strconv.FormatFloat(table.Value(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local
// filesystem (e.g., for testing), "gs" for Google Cloud Storage, and "s3"
// for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("heliocatutil.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(u.Hostname())
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("heliocatutil.OpenBucket: invalid provider %s", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s := session.Must(session.NewSession(c))
	return s3blob.OpenBucket(ctx, s, name)
}

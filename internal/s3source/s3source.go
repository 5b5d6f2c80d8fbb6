// Package s3source fetches realtime NEXRAD Level-II volumes from NOAA's
// public "chunks" bucket, where an in-progress volume is split across one
// header object and many small data-chunk objects (AWS Big Data Program).
package s3source

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// RealtimeBucket is the NEXRAD Level-II realtime chunk bucket maintained by
// Unidata under the AWS Big Data Program.
const RealtimeBucket = "unidata-nexrad-level2-chunks"

// ArchiveBucket is NOAA's public bucket of completed Level-II archive
// files, one object per volume.
const ArchiveBucket = "noaa-nexrad-level2"

// Client fetches realtime volume chunks using anonymous S3 credentials;
// the bucket is public and requires no signing.
type Client struct {
	svc    *s3.S3
	bucket string
}

// NewClient builds a Client against RealtimeBucket in us-east-1, where the
// bucket is hosted.
func NewClient() (*Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.AnonymousCredentials,
		Region:      aws.String("us-east-1"),
	})
	if err != nil {
		return nil, fmt.Errorf("s3source: creating session: %w", err)
	}
	return &Client{svc: s3.New(sess), bucket: RealtimeBucket}, nil
}

// FetchVolume downloads every chunk object for site/volume and returns them
// concatenated in key order: the header chunk first (it carries the volume
// header, compression record, and the VCP/metadata stream), then every
// data chunk after it. The result is suitable for archive2.OpenBytes.
func (c *Client) FetchVolume(site string, volume int) ([]byte, error) {
	keys, err := c.listChunkKeys(site, volume)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("s3source: no chunks found for %s volume %d", site, volume)
	}

	var out bytes.Buffer
	for _, key := range keys {
		body, err := c.fetchObject(key)
		if err != nil {
			return nil, fmt.Errorf("s3source: fetching %s: %w", key, err)
		}
		if _, err := out.Write(body); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

// FetchArchiveFile downloads one completed volume from ArchiveBucket,
// keyed by its date path (e.g. "2021/09/02/KOKX/KOKX20210902_000428_V06").
func (c *Client) FetchArchiveFile(key string) ([]byte, error) {
	resp, err := c.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(ArchiveBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3source: fetching archive file %s: %w", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) listChunkKeys(site string, volume int) ([]string, error) {
	resp, err := c.svc.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(fmt.Sprintf("%s/%d/", site, volume)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3source: listing objects: %w", err)
	}

	keys := make([]string, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		keys = append(keys, aws.StringValue(obj.Key))
	}
	// Chunk object keys sort lexically in collection order: the header
	// chunk's key sorts first, then _1, _2, ... in sequence.
	sort.Strings(keys)
	return keys, nil
}

func (c *Client) fetchObject(key string) ([]byte, error) {
	resp, err := c.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

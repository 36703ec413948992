package sourceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/objectstream/ingestd/pkg/logstream"
)

// LookupPartition resolves which log partition carries bucket via
// `GET /?raftId={bucket}`.
func (c *Client) LookupPartition(ctx context.Context, bucket string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/", map[string]string{"raftId": bucket}, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", newStatusError("lookupPartition", resp)
	}

	var partitions []string
	if err := json.NewDecoder(resp.Body).Decode(&partitions); err != nil {
		return "", fmt.Errorf("sourceclient: lookupPartition: decode: %w", err)
	}
	if len(partitions) == 0 {
		return "", ErrNotFound
	}
	return partitions[0], nil
}

// ListObjects returns the bucket's current object keys, first page only.
// Callers that need the full listing use ListObjectsPage.
func (c *Client) ListObjects(ctx context.Context, bucket string) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/"+bucket, map[string]string{"list-type": "2"}, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("listObjects", resp)
	}

	var parsed listObjectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("sourceclient: listObjects: decode: %w", err)
	}
	keys := make([]string, 0, len(parsed.Contents))
	for _, o := range parsed.Contents {
		keys = append(keys, o.Key)
	}
	return keys, nil
}

// ListObjectsPage lists one page of bucket's current objects starting from
// keyMarker/versionMarker (both empty for the first page). The snapshot
// producer is restartable across pages via the returned continuation
// markers.
func (c *Client) ListObjectsPage(ctx context.Context, bucket, keyMarker, versionMarker string) (ObjectPage, error) {
	query := map[string]string{"list-type": "2"}
	if keyMarker != "" {
		query["key-marker"] = keyMarker
	}
	if versionMarker != "" {
		query["version-id-marker"] = versionMarker
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/"+bucket, query, nil)
	if err != nil {
		return ObjectPage{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return ObjectPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ObjectPage{}, newStatusError("listObjects", resp)
	}

	var parsed listObjectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ObjectPage{}, fmt.Errorf("sourceclient: listObjects: decode: %w", err)
	}
	keys := make([]string, 0, len(parsed.Contents))
	for _, o := range parsed.Contents {
		keys = append(keys, o.Key)
	}
	return ObjectPage{
		Keys:                keys,
		IsTruncated:         parsed.IsTruncated,
		NextKeyMarker:       parsed.NextKeyMarker,
		NextVersionIDMarker: parsed.NextVersionIDMarker,
	}, nil
}

// GetObjectMetadata fetches a single object's metadata. A missing object
// is reported as ErrNotFound so the snapshot producer can log-and-skip it.
func (c *Client) GetObjectMetadata(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/"+bucket+"/"+key, map[string]string{"metadata": ""}, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("getObjectMetadata", resp)
	}

	var meta ObjectMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("sourceclient: getObjectMetadata: decode: %w", err)
	}
	return meta, nil
}

// ReadLog invokes the raft log tail read and hands back a parsed header
// plus a streaming record reader. 404 (no such partition) and 416 (range
// not yet satisfiable) are not errors: both resolve to an Info with a nil
// Start and an immediately-exhausted stream.
func (c *Client) ReadLog(ctx context.Context, partitionID string, begin, limit int64, targetLeader bool) (*logstream.Stream, error) {
	query := map[string]string{
		"logId":        partitionID,
		"begin":        strconv.FormatInt(begin, 10),
		"end":          strconv.FormatInt(begin+limit, 10),
		"targetLeader": strconv.FormatBool(targetLeader),
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/_/raftLog", query, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		resp.Body.Close()
		return logstream.EmptyStream(), nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Op: "readLog", StatusCode: resp.StatusCode, Body: string(body)}
	}

	stream, err := logstream.NewStream(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sourceclient: readLog: %w", err)
	}
	return stream, nil
}

func newStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}

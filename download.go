package csda

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
)

const downloadPath = "/api/v2/download/%s/%s/%s"

// Download streams an asset to a local file. The file is created or
// truncated once the service accepts the request; on error it may be left
// partially written.
//
// The connection is released whether the download completes or fails.
func (c *Client) Download(ctx context.Context, collectionID, itemID, assetKey, path string) error {
	err := c.withAsset(ctx, collectionID, itemID, assetKey, func(s *Stream) (err error) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		_, err = copyStream(f, s)
		return err
	})
	if err != nil {
		return fmt.Errorf("downloading %s/%s/%s: %w", collectionID, itemID, assetKey, err)
	}
	return nil
}

// DownloadTo streams an asset to w and returns the number of bytes
// written. A failed write stops the download and releases the connection.
func (c *Client) DownloadTo(ctx context.Context, collectionID, itemID, assetKey string, w io.Writer) (int64, error) {
	var written int64
	err := c.withAsset(ctx, collectionID, itemID, assetKey, func(s *Stream) (err error) {
		written, err = copyStream(w, s)
		return err
	})
	if err != nil {
		return written, fmt.Errorf("downloading %s/%s/%s: %w", collectionID, itemID, assetKey, err)
	}
	return written, nil
}

func (c *Client) withAsset(ctx context.Context, collectionID, itemID, assetKey string, fn func(*Stream) error) error {
	requestPath := fmt.Sprintf(downloadPath,
		url.PathEscape(collectionID), url.PathEscape(itemID), url.PathEscape(assetKey))

	c.logger.Debug("downloading asset",
		slog.String("collection", collectionID),
		slog.String("item", itemID),
		slog.String("asset", assetKey),
	)
	return c.WithStream(ctx, http.MethodGet, requestPath, fn)
}

// copyStream writes every chunk of s to w.
func copyStream(w io.Writer, s *Stream) (int64, error) {
	var written int64
	for s.Next() {
		n, err := w.Write(s.Chunk())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, s.Err()
}

// DownloadItem downloads an asset of a STAC item. The item must belong to
// a collection and, if it declares a STAC version, one this client
// understands.
func (c *Client) DownloadItem(ctx context.Context, item *Item, assetKey, path string) error {
	if item == nil {
		return newError(CodePrecondition, "item is required", 0, nil)
	}
	if item.Collection == "" {
		return newError(CodePrecondition, fmt.Sprintf("cannot download item %q without a collection id", item.ID), 0, nil)
	}
	if item.STACVersion != "" {
		if err := CheckSTACVersion(item.STACVersion); err != nil {
			return err
		}
	}
	return c.Download(ctx, item.Collection, item.ID, assetKey, path)
}

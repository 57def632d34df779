package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"videotube/internal/asset"
	"videotube/pkg/apierror"
)

// uploadAll stores every non-nil upload concurrently. Results line up with
// uploads; nil uploads yield a zero Asset. When any upload fails, the ones
// that succeeded are deleted before returning.
func uploadAll(ctx context.Context, store asset.Store, logger *slog.Logger, uploads ...*asset.Upload) ([]asset.Asset, error) {
	results := make([]asset.Asset, len(uploads))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, upload := range uploads {
		if upload == nil {
			continue
		}
		group.Go(func() error {
			stored, err := store.Put(groupCtx, *upload)
			if err != nil {
				return uploadError(upload.Kind, err)
			}
			results[i] = stored
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		urls := make([]string, 0, len(results))
		for _, stored := range results {
			urls = append(urls, stored.URL)
		}
		discardAssets(ctx, store, logger, urls...)
		return nil, err
	}

	return results, nil
}

func uploadError(kind asset.Kind, err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.Dependency("failed to upload "+string(kind), err)
}

// discardAssets deletes urls best-effort, even after ctx is cancelled.
func discardAssets(ctx context.Context, store asset.Store, logger *slog.Logger, urls ...string) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := store.Delete(cleanupCtx, url); err != nil {
			logger.Warn("asset cleanup failed", "url", url, "error", err)
		}
	}
}

// normalizeIdentifier trims and lowercases usernames and emails.
func normalizeIdentifier(value string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(value))
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

package cache

import (
	"context"
	"errors"
)

// instrumented считает результаты поисков и записей
type instrumented struct {
	EdgeCache
	metrics *Metrics
}

// Instrument оборачивает кэш сбором метрик
func Instrument(c EdgeCache, metrics *Metrics) EdgeCache {
	if metrics == nil {
		return c
	}
	return &instrumented{EdgeCache: c, metrics: metrics}
}

func (i *instrumented) Match(ctx context.Context, key string) (*StoredResponse, bool, error) {
	resp, found, err := i.EdgeCache.Match(ctx, key)
	switch {
	case err != nil:
		i.metrics.LookupsTotal.WithLabelValues("error").Inc()
	case found:
		i.metrics.LookupsTotal.WithLabelValues("hit").Inc()
	default:
		i.metrics.LookupsTotal.WithLabelValues("miss").Inc()
	}
	return resp, found, err
}

func (i *instrumented) Put(ctx context.Context, key string, resp *StoredResponse) error {
	err := i.EdgeCache.Put(ctx, key, resp)
	switch {
	case errors.Is(err, ErrEntryTooLarge), errors.Is(err, ErrNotStorable):
		i.metrics.WritesTotal.WithLabelValues("skipped").Inc()
	case err != nil:
		i.metrics.WritesTotal.WithLabelValues("error").Inc()
	default:
		i.metrics.WritesTotal.WithLabelValues("stored").Inc()
	}
	return err
}

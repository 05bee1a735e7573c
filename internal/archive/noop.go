package archive

import "context"

// NoopStore discards writes. It is used when the archive is disabled.
type NoopStore struct{}

func (s *NoopStore) Record(ctx context.Context, ex *Exchange) error {
	return nil
}

func (s *NoopStore) List(ctx context.Context, opts ListOptions) ([]Exchange, error) {
	return nil, nil
}

func (s *NoopStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return nil, nil
}

func (s *NoopStore) Close() error {
	return nil
}

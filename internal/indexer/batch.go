package indexer

import "github.com/hyperjump/shiori/internal/models"

// batches splits records into consecutive slices of at most size elements.
func batches(records []*models.ArticleRecord, size int) [][]*models.ArticleRecord {
	if len(records) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(records)
	}
	out := make([][]*models.ArticleRecord, 0, (len(records)+size-1)/size)
	for i := 0; i < len(records); i += size {
		end := i + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[i:end])
	}
	return out
}

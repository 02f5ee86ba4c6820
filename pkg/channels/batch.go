package channels

import (
	"time"

	"github.com/google/uuid"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

// Batch is the payload delivered downstream. Every batch carries jobs of a
// single category so channel formatting stays coherent.
type Batch struct {
	ID        string             `json:"id"`
	Category  domain.Category    `json:"category"`
	Jobs      []domain.JobRecord `json:"jobs"`
	CreatedAt time.Time          `json:"created_at"`
}

// Size returns the number of jobs in the batch.
func (b Batch) Size() int { return len(b.Jobs) }

// BuildBatches groups jobs by category and slices each group into batches of
// at most maxSize jobs, preserving input order within a category.
func BuildBatches(jobs []domain.JobRecord, maxSize int) []Batch {
	if len(jobs) == 0 {
		return nil
	}
	if maxSize <= 0 {
		maxSize = len(jobs)
	}

	order := make([]domain.Category, 0, 2)
	groups := make(map[domain.Category][]domain.JobRecord)
	for _, job := range jobs {
		cat := domain.ParseCategory(string(job.Category))
		if _, seen := groups[cat]; !seen {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], job)
	}

	now := time.Now().UTC()
	var batches []Batch
	for _, cat := range order {
		group := groups[cat]
		for start := 0; start < len(group); start += maxSize {
			end := start + maxSize
			if end > len(group) {
				end = len(group)
			}
			chunk := make([]domain.JobRecord, end-start)
			copy(chunk, group[start:end])
			batches = append(batches, Batch{
				ID:        uuid.NewString(),
				Category:  cat,
				Jobs:      chunk,
				CreatedAt: now,
			})
		}
	}
	return batches
}

// statusEnvelope wraps status notifications for JSON sinks so consumers can
// distinguish them from job batches.
type statusEnvelope struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

func newStatusEnvelope(text string) statusEnvelope {
	return statusEnvelope{Kind: "status", Message: text, SentAt: time.Now().UTC()}
}

package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/jobs"
)

// Fetcher downloads a statement stored at a gs:// URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Scanner runs scan jobs from the queue.
type Scanner struct {
	importer *Importer
	fetcher  Fetcher // nil disables SourceURI jobs
}

func NewScanner(importer *Importer, fetcher Fetcher) *Scanner {
	return &Scanner{importer: importer, fetcher: fetcher}
}

// Handle is a jobs.JobHandler. The extracted lines are stored on the job.
func (s *Scanner) Handle(ctx context.Context, job jobs.Job) error {
	scan, ok := job.(*jobs.ScanJob)
	if !ok {
		return fmt.Errorf("Handle: unexpected job type %s", job.GetType())
	}

	data := scan.Data
	if len(data) == 0 {
		if scan.SourceURI == "" {
			return fmt.Errorf("Handle: job %s has no statement", scan.JobID)
		}
		if s.fetcher == nil || !strings.HasPrefix(scan.SourceURI, "gs://") {
			return fmt.Errorf("Handle: cannot fetch %s", scan.SourceURI)
		}
		fetched, err := s.fetcher.Fetch(ctx, scan.SourceURI)
		if err != nil {
			return fmt.Errorf("Handle: %w", err)
		}
		data = fetched
	}

	lines, err := s.importer.Scan(ctx, scan.AccountID, data, scan.MIMEType)
	if err != nil {
		return err
	}
	scan.Lines = lines
	return nil
}

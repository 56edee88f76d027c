// Package athena fetches query execution history from the AWS Athena API
// and maps it onto query records.
package athena

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/aws/aws-sdk-go/service/athena/athenaiface"
	"golang.org/x/sync/errgroup"

	"athenalens/internal/model"
	"athenalens/internal/sqltext"
)

// BatchGetQueryExecution accepts at most 50 ids per call.
const batchSize = 50

const maxParallelWorkgroups = 8

// Client fetches query executions from Athena.
type Client struct {
	api      athenaiface.AthenaAPI
	analyzer *sqltext.Analyzer
}

// New creates a client for the given region using the default AWS
// credential chain.
func New(region string) *Client {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(region)},
		SharedConfigState: session.SharedConfigEnable,
	}))
	return NewWithAPI(athena.New(sess))
}

// NewWithAPI creates a client around an existing API implementation.
func NewWithAPI(api athenaiface.AthenaAPI) *Client {
	return &Client{api: api, analyzer: sqltext.Default()}
}

// ListWorkgroups returns the names of all workgroups in the account.
func (c *Client) ListWorkgroups(ctx context.Context) ([]string, error) {
	var names []string
	input := &athena.ListWorkGroupsInput{MaxResults: aws.Int64(batchSize)}
	err := c.api.ListWorkGroupsPagesWithContext(ctx, input,
		func(page *athena.ListWorkGroupsOutput, _ bool) bool {
			for _, wg := range page.WorkGroups {
				names = append(names, aws.StringValue(wg.Name))
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("listing workgroups: %w", err)
	}
	return names, nil
}

// Progress reports per-workgroup fetch counters.
type Progress struct {
	Workgroup string
	Listed    int
	Matched   int
}

// FetchRange fetches executions whose submission time falls on the inclusive
// date range start..end, across the given workgroups in parallel. onProgress
// may be nil.
func (c *Client) FetchRange(ctx context.Context, workgroups []string, start, end time.Time, onProgress func(Progress)) ([]model.QueryRecord, error) {
	endExclusive := end.Add(24 * time.Hour)

	var mu sync.Mutex
	var all []model.QueryRecord

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelWorkgroups)
	for _, wg := range workgroups {
		g.Go(func() error {
			records, listed, err := c.fetchWorkgroup(ctx, wg, start, endExclusive)
			if err != nil {
				return fmt.Errorf("workgroup %s: %w", wg, err)
			}
			if onProgress != nil {
				onProgress(Progress{Workgroup: wg, Listed: listed, Matched: len(records)})
			}
			mu.Lock()
			all = append(all, records...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	return all, nil
}

func (c *Client) fetchWorkgroup(ctx context.Context, workgroup string, start, endExclusive time.Time) ([]model.QueryRecord, int, error) {
	var records []model.QueryRecord
	var batch []*string
	listed := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		got, err := c.fetchBatch(ctx, workgroup, batch, start, endExclusive)
		if err != nil {
			return err
		}
		records = append(records, got...)
		batch = nil
		return nil
	}

	input := &athena.ListQueryExecutionsInput{
		WorkGroup:  aws.String(workgroup),
		MaxResults: aws.Int64(batchSize),
	}
	var pageErr error
	err := c.api.ListQueryExecutionsPagesWithContext(ctx, input,
		func(page *athena.ListQueryExecutionsOutput, _ bool) bool {
			for _, id := range page.QueryExecutionIds {
				batch = append(batch, id)
				listed++
				if len(batch) >= batchSize {
					if pageErr = flush(); pageErr != nil {
						return false
					}
				}
			}
			return true
		})
	if err != nil {
		return nil, listed, fmt.Errorf("listing executions: %w", err)
	}
	if pageErr != nil {
		return nil, listed, pageErr
	}
	if err := flush(); err != nil {
		return nil, listed, err
	}
	return records, listed, nil
}

func (c *Client) fetchBatch(ctx context.Context, workgroup string, ids []*string, start, endExclusive time.Time) ([]model.QueryRecord, error) {
	resp, err := c.api.BatchGetQueryExecutionWithContext(ctx, &athena.BatchGetQueryExecutionInput{
		QueryExecutionIds: ids,
	})
	if err != nil {
		return nil, fmt.Errorf("batch get executions: %w", err)
	}

	var out []model.QueryRecord
	for _, exec := range resp.QueryExecutions {
		r, ok := c.mapExecution(exec, workgroup, start, endExclusive)
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) mapExecution(exec *athena.QueryExecution, workgroup string, start, endExclusive time.Time) (model.QueryRecord, bool) {
	if exec == nil || exec.Status == nil || exec.Status.SubmissionDateTime == nil {
		return model.QueryRecord{}, false
	}
	startTime := exec.Status.SubmissionDateTime.UTC()
	if startTime.Before(start) || !startTime.Before(endExclusive) {
		return model.QueryRecord{}, false
	}

	queryText := aws.StringValue(exec.Query)
	r := model.QueryRecord{
		ID:        aws.StringValue(exec.QueryExecutionId),
		StartTime: startTime,
		State:     aws.StringValue(exec.Status.State),
		Workgroup: workgroup,
		Database:  c.analyzer.PrimaryDatabase(queryText),
		QueryText: queryText,
	}
	if r.Workgroup == "" {
		r.Workgroup = aws.StringValue(exec.WorkGroup)
	}
	r.StatusReason = aws.StringValue(exec.Status.StateChangeReason)

	if exec.Status.CompletionDateTime != nil {
		t := exec.Status.CompletionDateTime.UTC()
		r.EndTime = &t
	}
	if exec.Statistics != nil {
		r.DataScannedBytes = aws.Int64Value(exec.Statistics.DataScannedInBytes)
		if exec.Statistics.TotalExecutionTimeInMillis != nil {
			mins := float64(*exec.Statistics.TotalExecutionTimeInMillis) / 60000.0
			r.RuntimeMinutes = &mins
		}
	}
	r.Cost = model.DeriveCost(r.DataScannedBytes)

	r.EngineVersion = "AUTO"
	if exec.EngineVersion != nil {
		if v := aws.StringValue(exec.EngineVersion.SelectedEngineVersion); v != "" {
			r.EngineVersion = v
		}
	}
	return r, true
}

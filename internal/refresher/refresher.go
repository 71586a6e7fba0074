// Package refresher synthesizes refresh events for merge queues and
// submits them to the job queue. Synthetic events have the same shape
// as genuine webhook events, the worker subsystem does not
// special-case them.
package refresher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/event"
	"github.com/mergefront/mergefront/internal/githubclt"
	"github.com/mergefront/mergefront/internal/logfields"
)

const loggerName = "refresher"

// CodeHostClient is the subset of the github client the refresher
// needs.
type CodeHostClient interface {
	InstallationID(ctx context.Context, owner string) (int64, error)
	Installations(ctx context.Context) ([]*githubclt.Installation, error)
	InstallationRepositories(ctx context.Context, installationID int64) ([]*githubclt.Repository, error)
	OpenPRBaseBranches(ctx context.Context, owner, repo string) ([]string, error)
}

// JobEnqueuer submits a job to the external job queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, eventType string, payload []byte) error
}

// NotInstalledError is returned when a refresh is requested for an
// owner that has not installed the app.
type NotInstalledError struct {
	Owner string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("%s has not installed the app", e.Owner)
}

// Counters summarizes a bulk refresh run.
type Counters struct {
	Installations int
	Repositories  int
	Branches      int
}

func (c *Counters) String() string {
	return fmt.Sprintf(
		"Updated %d installations, %d repositories, %d branches",
		c.Installations, c.Repositories, c.Branches,
	)
}

type Refresher struct {
	clt    CodeHostClient
	queue  JobEnqueuer
	logger *zap.Logger
}

func New(clt CodeHostClient, queue JobEnqueuer) *Refresher {
	return &Refresher{
		clt:    clt,
		queue:  queue,
		logger: zap.L().Named(loggerName),
	}
}

// Branch enqueues a refresh event for a single merge queue.
// A *NotInstalledError is returned when no installation exists for
// owner.
func (r *Refresher) Branch(ctx context.Context, owner, repo, branch string) error {
	installationID, err := r.clt.InstallationID(ctx, owner)
	if err != nil {
		if errors.Is(err, githubclt.ErrNotInstalled) {
			return &NotInstalledError{Owner: owner}
		}

		return fmt.Errorf("resolving installation of %q failed: %w", owner, err)
	}

	if err := r.enqueueRefresh(ctx, owner, repo, branch, installationID); err != nil {
		return err
	}

	r.logger.Info(
		"refresh event enqueued",
		logfields.Event("refresh_enqueued"),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.Branch(branch),
		logfields.Installation(installationID),
	)

	return nil
}

// All enqueues a refresh event for every branch that has an open pull
// request, across all repositories of all installations. Repositories
// without open pull requests are visited and counted but contribute no
// events.
func (r *Refresher) All(ctx context.Context) (*Counters, error) {
	var counters Counters

	installations, err := r.clt.Installations(ctx)
	if err != nil {
		return &counters, err
	}

	for _, installation := range installations {
		counters.Installations++

		repositories, err := r.clt.InstallationRepositories(ctx, installation.ID)
		if err != nil {
			return &counters, err
		}

		for _, repository := range repositories {
			counters.Repositories++

			branches, err := r.clt.OpenPRBaseBranches(ctx, repository.OwnerLogin, repository.Name)
			if err != nil {
				return &counters, err
			}

			for _, branch := range branches {
				err := r.enqueueRefresh(ctx, repository.OwnerLogin, repository.Name, branch, installation.ID)
				if err != nil {
					return &counters, err
				}

				counters.Branches++
			}
		}
	}

	r.logger.Info(
		"bulk refresh finished",
		logfields.Event("bulk_refresh_finished"),
		zap.Int("installation_count", counters.Installations),
		zap.Int("repository_count", counters.Repositories),
		zap.Int("branch_count", counters.Branches),
	)

	return &counters, nil
}

func (r *Refresher) enqueueRefresh(ctx context.Context, owner, repo, branch string, installationID int64) error {
	payload, err := json.Marshal(event.NewRefresh(owner, repo, branch, installationID))
	if err != nil {
		return fmt.Errorf("serializing refresh event failed: %w", err)
	}

	if err := r.queue.Enqueue(ctx, event.TypeRefresh, payload); err != nil {
		return fmt.Errorf("enqueueing refresh event for %s/%s %s failed: %w", owner, repo, branch, err)
	}

	return nil
}

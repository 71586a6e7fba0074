package githubclt

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v67/github"
)

// Installation is an authorization grant linking the app to a github
// account or organization.
type Installation struct {
	ID           int64
	AccountLogin string
}

// Repository is a repository accessible to an installation.
type Repository struct {
	Name       string
	FullName   string
	OwnerLogin string
}

const listPageSize = 100

// Installations lists all installations of the app.
func (clt *Client) Installations(ctx context.Context) ([]*Installation, error) {
	var result []*Installation

	opts := github.ListOptions{PerPage: listPageSize}

	for {
		var installations []*github.Installation
		var resp *github.Response

		err := clt.retry(ctx, func() error {
			var err error
			installations, resp, err = clt.restClt.Apps.ListInstallations(ctx, &opts)
			return clt.wrapRetryableErrors(err)
		})
		if err != nil {
			return nil, fmt.Errorf("listing installations failed: %w", err)
		}

		for _, installation := range installations {
			result = append(result, &Installation{
				ID:           installation.GetID(),
				AccountLogin: installation.GetAccount().GetLogin(),
			})
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

// InstallationID resolves the installation for an owner account.
// ErrNotInstalled is returned when the owner has no installation.
func (clt *Client) InstallationID(ctx context.Context, owner string) (int64, error) {
	installations, err := clt.Installations(ctx)
	if err != nil {
		return 0, err
	}

	for _, installation := range installations {
		if strings.EqualFold(installation.AccountLogin, owner) {
			return installation.ID, nil
		}
	}

	return 0, fmt.Errorf("owner %q: %w", owner, ErrNotInstalled)
}

// InstallationRepositories lists the repositories accessible to an
// installation.
func (clt *Client) InstallationRepositories(ctx context.Context, installationID int64) ([]*Repository, error) {
	var result []*Repository

	opts := github.ListOptions{PerPage: listPageSize}

	for {
		var repos *github.ListRepositories
		var resp *github.Response

		err := clt.retry(ctx, func() error {
			var err error
			repos, resp, err = clt.restClt.Apps.ListUserRepos(ctx, installationID, &opts)
			return clt.wrapRetryableErrors(err)
		})
		if err != nil {
			return nil, fmt.Errorf("listing repositories of installation %d failed: %w", installationID, err)
		}

		for _, repo := range repos.Repositories {
			result = append(result, &Repository{
				Name:       repo.GetName(),
				FullName:   repo.GetFullName(),
				OwnerLogin: repo.GetOwner().GetLogin(),
			})
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

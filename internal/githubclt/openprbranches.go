package githubclt

import (
	"context"
	"fmt"
	"sort"

	"github.com/shurcooL/githubv4"
)

type pageInfo struct {
	EndCursor   githubv4.String
	HasNextPage bool
}

type openPRBaseBranchesQuery struct {
	Repository struct {
		PullRequests struct {
			PageInfo pageInfo
			Nodes    []struct {
				BaseRefName string
			}
		} `graphql:"pullRequests(states: OPEN, first: 100, after: $pullRequestCursor)"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

// OpenPRBaseBranches returns the distinct target branches of all open
// pull requests of the repository, in lexical order. A repository
// without open pull requests yields an empty slice.
func (clt *Client) OpenPRBaseBranches(ctx context.Context, owner, repo string) ([]string, error) {
	vars := map[string]any{
		"owner":             githubv4.String(owner),
		"repo":              githubv4.String(repo),
		"pullRequestCursor": (*githubv4.String)(nil),
	}

	branches := map[string]struct{}{}

	for {
		var q openPRBaseBranchesQuery

		err := clt.retry(ctx, func() error {
			err := clt.graphQLClt.Query(ctx, &q, vars)
			if err != nil {
				return clt.wrapGraphQLRetryableErrors(err)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("listing open pull requests of %s/%s failed: %w", owner, repo, err)
		}

		for _, node := range q.Repository.PullRequests.Nodes {
			branches[node.BaseRefName] = struct{}{}
		}

		if !q.Repository.PullRequests.PageInfo.HasNextPage {
			break
		}

		vars["pullRequestCursor"] = q.Repository.PullRequests.PageInfo.EndCursor
	}

	result := make([]string, 0, len(branches))
	for branch := range branches {
		result = append(result, branch)
	}

	sort.Strings(result)

	return result, nil
}

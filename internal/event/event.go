// Package event defines the fields of github webhook payloads that the
// ingestion layer interprets. Synthetic refresh events are built from
// the same types, the worker subsystem sees one uniform shape.
package event

import "fmt"

// TypeRefresh is the event type of synthetic refresh events.
const TypeRefresh = "refresh"

type Owner struct {
	Login string `json:"login"`
}

type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    Owner  `json:"owner"`
}

type Account struct {
	Login string `json:"login"`
}

type Installation struct {
	ID      int64   `json:"id"`
	Account Account `json:"account"`
}

// Payload is the interpreted subset of a webhook event body. Genuine
// events carry many more fields, they are ignored here and passed
// through to the job queue unmodified.
type Payload struct {
	Repository   *Repository   `json:"repository,omitempty"`
	Installation *Installation `json:"installation,omitempty"`
	Branch       string        `json:"branch,omitempty"`
}

// NewRefresh builds the payload of a synthetic refresh event for one
// branch.
func NewRefresh(owner, repo, branch string, installationID int64) *Payload {
	return &Payload{
		Repository: &Repository{
			Name:     repo,
			FullName: fmt.Sprintf("%s/%s", owner, repo),
			Owner:    Owner{Login: owner},
		},
		Installation: &Installation{ID: installationID},
		Branch:       branch,
	}
}

// RepositoryIdentifier returns a human-readable identifier of the
// repository the event refers to: the repository full name when
// present, otherwise the login of the installation account.
func (p *Payload) RepositoryIdentifier() string {
	if p.Repository != nil && p.Repository.FullName != "" {
		return p.Repository.FullName
	}

	if p.Installation != nil {
		return p.Installation.Account.Login
	}

	return ""
}

// InstallationID returns the installation id of the event or 0 if the
// payload carries none.
func (p *Payload) InstallationID() int64 {
	if p.Installation == nil {
		return 0
	}

	return p.Installation.ID
}

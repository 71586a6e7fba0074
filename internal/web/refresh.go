package web

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/hookauth"
	"github.com/mergefront/mergefront/internal/logfields"
	"github.com/mergefront/mergefront/internal/refresher"
)

// HandlerRefreshBranch triggers a refresh of a single merge queue.
func (s *Service) HandlerRefreshBranch(respWr http.ResponseWriter, req *http.Request) {
	owner := req.PathValue("owner")
	repo := req.PathValue("repo")
	branch := req.PathValue("branch")

	err := s.refresher.Branch(req.Context(), owner, repo, branch)
	if err != nil {
		var notInstalled *refresher.NotInstalledError
		if errors.As(err, &notInstalled) {
			http.Error(respWr, notInstalled.Error(), http.StatusNotFound)
			return
		}

		s.logger.Error(
			"branch refresh failed",
			logfields.Event("http_refresh_branch_failed"),
			logfields.RepositoryOwner(owner),
			logfields.Repository(repo),
			logfields.Branch(branch),
			zap.Error(err),
		)
		http.Error(respWr, "", http.StatusInternalServerError)
		return
	}

	metrics.RefreshTriggersInc(refreshScopeBranch)
	respWr.WriteHeader(http.StatusAccepted)
}

// HandlerRefreshAll triggers a refresh of every branch with an open
// pull request across all installations. It is an administrative bulk
// action and requires a valid webhook signature.
func (s *Service) HandlerRefreshAll(respWr http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxEventBodySize))
	if err != nil {
		respWr.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.auth.Verify(body, req.Header.Get(hookauth.HeaderName)); err != nil {
		respWr.WriteHeader(http.StatusForbidden)
		return
	}

	counters, err := s.refresher.All(req.Context())
	if err != nil {
		s.logger.Error(
			"bulk refresh failed",
			logfields.Event("http_refresh_all_failed"),
			zap.Error(err),
		)
		http.Error(respWr, "", http.StatusInternalServerError)
		return
	}

	metrics.RefreshTriggersInc(refreshScopeAll)

	resp := newHTTPRespWriter(s.logger, respWr)
	resp.Header().Set("Content-Type", "text/plain")
	resp.WriteHeader(http.StatusAccepted)
	resp.WriteStr(counters.String())
}

package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// Rule is the role a route needs and the action it guards.
type Rule struct {
	Role   Role
	Action string
}

var (
	ruleAdminJobs    = Rule{Role: RoleAdmin, Action: "run backfills, catalog syncs and jobs"}
	ruleRecalculate  = Rule{Role: RoleOperator, Action: "recalculate spot averages"}
	ruleReadStored   = Rule{Role: RoleViewer, Action: "read stored spot data"}
	ruleWriteGeneric = Rule{Role: RoleOperator, Action: "change pricing data"}
)

// RuleFor resolves the rule a request must satisfy. Averages, estimates,
// cost and comparison calls are open.
func (p Policy) RuleFor(r *http.Request) (Rule, bool) {
	if r == nil {
		return Rule{}, false
	}
	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/api/v1/admin/"):
		return ruleAdminJobs, true
	case path == "/api/v1/spot/averages/calculate":
		return ruleRecalculate, true
	case path == "/api/v1/spot/averages",
		path == "/api/v1/estimate",
		strings.HasPrefix(path, "/api/v1/comparison"),
		strings.HasPrefix(path, "/api/v1/contracts/") && strings.HasSuffix(path, "/cost"):
		return Rule{}, false
	}

	if strings.HasPrefix(path, "/api/") {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return ruleReadStored, true
		}
		return ruleWriteGeneric, true
	}
	return Rule{}, false
}

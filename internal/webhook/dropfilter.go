package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// DropFilter evaluates a jq expression against event payloads. Events
// for which the expression evaluates to a single true result are
// dropped before enqueueing.
type DropFilter struct {
	query *gojq.Query
}

func NewDropFilter(jqQuery string) (*DropFilter, error) {
	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, fmt.Errorf("parsing filter query failed: %w", err)
	}

	return &DropFilter{query: query}, nil
}

func (f *DropFilter) String() string {
	return f.query.String()
}

func (f *DropFilter) Drops(ctx context.Context, payload []byte) (bool, error) {
	var unmarshalled any

	if err := json.Unmarshal(payload, &unmarshalled); err != nil {
		return false, fmt.Errorf("unmarshalling payload failed: %w", err)
	}

	results, errs := jqIterToSlice(f.query.RunWithContext(ctx, unmarshalled))
	if len(errs) != 0 {
		return false, fmt.Errorf("filter query returned errors, query: %q, errors: %s", f.query.String(), errString(errs))
	}

	if len(results) != 1 {
		return false, fmt.Errorf("filter query returned %d results, expected 1, query: %q", len(results), f.query.String())
	}

	result, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("filter query returned a %T, expected a boolean, query: %q", results[0], f.query.String())
	}

	return result, nil
}

func jqIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}
